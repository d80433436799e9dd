package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/yishak-cs/themenu/internal/models"
)

const userAgent = "Mozilla/5.0 (compatible; themenu-recipe-import/1.0)"

// RecipeImporter scrapes a recipe page into a dish draft
type RecipeImporter struct {
	client *http.Client
}

// NewRecipeImporter creates an importer. A nil client gets a 30 second timeout.
func NewRecipeImporter(client *http.Client) *RecipeImporter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &RecipeImporter{client: client}
}

// ImportInput names the page to import
type ImportInput struct {
	URL  string `json:"url" binding:"required"`
	Save bool   `json:"save"`
}

// Import fetches rawURL and extracts the dish name, ingredient lines and method.
func (r *RecipeImporter) Import(ctx context.Context, rawURL string) (*DishInput, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, invalidf("url must be an absolute http(s) address")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, invalidf("fetching %s returned %s", u, resp.Status)
	}

	draft, err := ParseRecipe(resp.Body)
	if err != nil {
		return nil, err
	}
	draft.Source = u.String()
	return draft, nil
}

// ParseRecipe reads schema.org recipe microdata, falling back to common list markup.
func ParseRecipe(body io.Reader) (*DishInput, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse recipe page: %w", err)
	}
	doc.Find("script, style, nav, footer, iframe, svg").Remove()

	draft := &DishInput{Name: recipeName(doc)}
	if draft.Name == "" {
		return nil, invalidf("page has no recipe title")
	}

	lines := collectText(doc.Find(`[itemprop="recipeIngredient"], [itemprop="ingredients"]`))
	if len(lines) == 0 {
		lines = collectText(doc.Find(".ingredients li, .recipe-ingredients li, ul.ingredient-list li"))
	}
	for _, line := range lines {
		if ia, ok := ParseIngredientLine(line); ok {
			draft.Ingredients = append(draft.Ingredients, ia)
		}
	}

	steps := collectText(doc.Find(`[itemprop="recipeInstructions"]`))
	if len(steps) == 0 {
		steps = collectText(doc.Find(".instructions li, .directions li, .method li"))
	}
	draft.Recipe = strings.Join(steps, "\n")
	return draft, nil
}

func recipeName(doc *goquery.Document) string {
	if name := squash(doc.Find(`[itemprop="name"]`).First().Text()); name != "" {
		return name
	}
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && squash(og) != "" {
		return squash(og)
	}
	if h1 := squash(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return squash(doc.Find("title").First().Text())
}

func collectText(sel *goquery.Selection) []string {
	var out []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if text := squash(s.Text()); text != "" {
			out = append(out, text)
		}
	})
	return out
}

var spaces = regexp.MustCompile(`\s+`)

func squash(s string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

var quantity = regexp.MustCompile(`^([0-9]+([./][0-9]+)?|[½¼¾⅓⅔⅛])$`)

var unitAliases = map[string]string{
	"cup": "c", "cups": "c",
	"tablespoon": "tbsp", "tablespoons": "tbsp", "tbs": "tbsp", "tbl": "tbsp",
	"teaspoon": "tsp", "teaspoons": "tsp",
	"gram": "g", "grams": "g", "kilogram": "kg", "kilograms": "kg",
	"ounce": "oz", "ounces": "oz", "pound": "lb", "pounds": "lb", "lbs": "lb",
	"milliliter": "ml", "milliliters": "ml", "millilitre": "ml", "millilitres": "ml",
	"liter": "L", "liters": "L", "litre": "L", "litres": "L", "l": "L",
	"pint": "pt", "pints": "pt", "quart": "qt", "quarts": "qt",
	"gallon": "gal", "gallons": "gal", "pinches": "pinch", "dashes": "dash",
}

// ParseIngredientLine splits "2 1/2 cups flour, sifted" into amount "2 1/2",
// unit "c", ingredient "flour" and descriptor "sifted".
func ParseIngredientLine(line string) (IngredientAmountInput, bool) {
	fields := strings.Fields(squash(line))
	var amount []string
	for len(fields) > 0 && quantity.MatchString(fields[0]) {
		amount = append(amount, fields[0])
		fields = fields[1:]
	}

	var unit string
	if len(amount) > 0 && len(fields) > 1 {
		if u, ok := normalizeUnit(fields[0]); ok {
			unit = u
			fields = fields[1:]
		}
	}

	rest := strings.Join(fields, " ")
	name, descriptor, _ := strings.Cut(rest, ",")
	name = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(name), "of "))
	if name == "" {
		return IngredientAmountInput{}, false
	}
	if len(name) > 96 {
		name = name[:96]
	}
	return IngredientAmountInput{
		IngredientName: strings.ToLower(name),
		Amount:         strings.Join(amount, " "),
		Unit:           unit,
		Descriptor:     strings.TrimSpace(descriptor),
	}, true
}

func normalizeUnit(word string) (string, bool) {
	w := strings.TrimSuffix(word, ".")
	if _, ok := models.Units[w]; ok {
		return w, true
	}
	lower := strings.ToLower(w)
	if _, ok := models.Units[lower]; ok {
		return lower, true
	}
	if u, ok := unitAliases[lower]; ok {
		return u, true
	}
	return "", false
}
