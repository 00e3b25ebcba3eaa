// Package classify asigna cada línea de una orden a una categoría de cocina
// para rutear la orden a la estación de impresión correcta.
package classify

import (
	"strings"

	"github.com/juancollazo-ch/order-print-relay/internal/models"
)

// Classifier es puro: no guarda estado entre órdenes.
type Classifier struct {
	table []Keywords
}

// New usa DefaultKeywords si table viene vacío.
func New(table []Keywords) *Classifier {
	if len(table) == 0 {
		table = DefaultKeywords
	}
	return &Classifier{table: table}
}

var defaultClassifier = New(nil)

// Categorize clasifica con la tabla por defecto.
func Categorize(item models.LineItem) models.ItemCategory {
	return defaultClassifier.Categorize(item)
}

// Categorize busca por substring sobre nombre + descripción, en orden de prioridad.
func (c *Classifier) Categorize(item models.LineItem) models.ItemCategory {
	text := strings.ToLower(item.DisplayName() + " " + item.Description)
	for _, entry := range c.table {
		for _, word := range entry.Words {
			if strings.Contains(text, word) {
				return entry.Category
			}
		}
	}
	return models.CategoryUnknown
}

// Categories devuelve el conjunto de categorías de la orden, en orden de aparición.
func (c *Classifier) Categories(order *models.Order) []models.ItemCategory {
	var out []models.ItemCategory
	seen := map[models.ItemCategory]bool{}
	for _, item := range order.LineItems {
		cat := c.Categorize(item)
		if !seen[cat] {
			seen[cat] = true
			out = append(out, cat)
		}
	}
	return out
}

// FilterOrdersByCategory deja las órdenes con al menos una categoría buscada y
// les adjunta las categorías detectadas como metadata de ruteo.
func (c *Classifier) FilterOrdersByCategory(orders []models.Order, wanted []models.ItemCategory) []models.Order {
	want := make(map[models.ItemCategory]bool, len(wanted))
	for _, w := range wanted {
		want[w] = true
	}

	out := make([]models.Order, 0, len(orders))
	for _, order := range orders {
		cats := c.Categories(&order)
		for _, cat := range cats {
			if want[cat] {
				order.Routing = &models.RoutingInfo{Categories: cats}
				out = append(out, order)
				break
			}
		}
	}
	return out
}

// FilterOrdersByCategory usa la tabla por defecto.
func FilterOrdersByCategory(orders []models.Order, wanted []models.ItemCategory) []models.Order {
	return defaultClassifier.FilterOrdersByCategory(orders, wanted)
}
