package classify

import "github.com/juancollazo-ch/order-print-relay/internal/models"

// Keywords es la tabla de palabras clave por categoría, en minúsculas.
// Mezcla vocabulario en inglés, alemán y tailandés del menú actual.
type Keywords struct {
	Category models.ItemCategory
	Words    []string
}

// DefaultKeywords va en orden de prioridad: gana la primera categoría que coincide.
var DefaultKeywords = []Keywords{
	{
		Category: models.CategoryFood,
		Words: []string{
			"pizza", "burger", "pasta", "curry", "pad thai", "noodle", "rice",
			"chicken", "beef", "pork", "fish", "shrimp", "tofu", "salad", "sandwich",
			"wrap", "soup", "steak", "schnitzel", "wurst", "bratwurst", "spätzle",
			"nudeln", "hähnchen", "rind", "suppe", "gericht", "hauptspeise",
			"ผัดไทย", "แกง", "ข้าว", "ก๋วยเตี๋ยว", "ไก่", "หมู", "กุ้ง", "ต้มยำ",
		},
	},
	{
		Category: models.CategoryBeverages,
		Words: []string{
			"cola", "coke", "sprite", "fanta", "water", "juice", "soda", "lemonade",
			"tea", "coffee", "latte", "espresso", "beer", "wine", "smoothie", "shake",
			"getränk", "wasser", "saft", "bier", "wein", "kaffee", "limo", "tee",
			"ชา", "กาแฟ", "น้ำ", "เบียร์", "โซดา",
		},
	},
	{
		Category: models.CategoryDesserts,
		Words: []string{
			"dessert", "cake", "ice cream", "brownie", "cookie", "pudding", "tiramisu",
			"cheesecake", "mango sticky", "kuchen", "torte", "eis", "nachspeise",
			"apfelstrudel", "ขนม", "ไอศกรีม", "ข้าวเหนียวมะม่วง", "บัวลอย",
		},
	},
	{
		Category: models.CategorySides,
		Words: []string{
			"fries", "chips", "side", "dip", "sauce", "bread", "garlic bread",
			"spring roll", "coleslaw", "onion rings", "beilage", "pommes", "brot",
			"soße", "ปอเปี๊ยะ", "น้ำจิ้ม",
		},
	},
}
