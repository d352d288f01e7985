package classify

import (
	"strings"

	"github.com/joseph-ayodele/invoice-analyzer/constants"
)

// Rule assigns Label to any description containing one of its keywords.
// Keywords are lower-case; accented and misspelled variants are listed explicitly.
type Rule struct {
	Label    constants.Category
	Keywords []string
}

// DefaultRules is evaluated top to bottom and the first hit wins, so a
// description like "pasta tomate" lands in Dry Food, not Canned Goods.
var DefaultRules = []Rule{
	{constants.CleaningSupplies, []string{"mistolin", "clorox", "detergente", "limpiador", "lavaplatos", "desinfectante", "suavizante", "multiuso", "bleach", "limpia", "sanitizante"}},
	{constants.Hygiene, []string{"jabon", "jabón", "shampoo", "shampu", "desodorante", "afeitadora", "pañal", "toalla femenina", "crema dental", "cepillo dental", "rinã", "rinna", "riná", "rina"}},
	{constants.Dairy, []string{"leche", "queso", "yogurt", "mantequilla", "margarina"}},
	{constants.Proteins, []string{"pollo", "res", "carne", "hígado", "chuleta", "pescado", "atun", "atún", "cerdo", "molida", "picado"}},
	{constants.DryFood, []string{"arroz", "pasta", "espaguetti", "espagueti", "fideo", "harina", "avena", "granos", "trigo"}},
	{constants.CannedGoods, []string{"sardina", "jamonilla", "guisantes", "veget", "mix", "pasta tomate", "salsa tomate", "margarin", "tuna", "atún", "maiz"}},
	{constants.Drinks, []string{"café", "cafe", "té", "te", "jugo", "bebida", "refresco"}},
	{constants.Bakery, []string{"pan", "pullman", "pita"}},
	{constants.Baby, []string{"bebe", "bebé", "baby"}},
	{constants.Cereals, []string{"cereal", "corn flakes"}},
	{constants.Sauces, []string{"salsa", "vinagre", "oregano", "orégano", "ketchup", "mostaza", "condimento"}},
	{constants.PetSupplies, []string{"gati", "ascan", "dog", "cat", "mascota"}},
	{constants.Snacks, []string{"galleta", "chips", "snack", "chocolate", "cracker"}},
	{constants.Frozen, []string{"congelado", "frozen"}},
}

// MatchRules returns the label of the first rule with a keyword contained in desc.
// desc must already be lower-case.
func MatchRules(rules []Rule, desc string) (constants.Category, bool) {
	for _, r := range rules {
		for _, kw := range r.Keywords {
			if strings.Contains(desc, kw) {
				return r.Label, true
			}
		}
	}
	return "", false
}
