package filter

// Heurísticas de órdenes de prueba. Editar acá, no en la lógica.
var (
	testEmailPatterns = []string{
		"test@",
		"@test.",
		"example.com",
		"dummy@",
		"@dummy.",
		"noreply@",
		"@noreply.",
		"donotreply@",
	}

	testBuyerNames = []string{
		"test",
		"dummy",
		"example",
		"sample",
	}
)
