package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const microdataRecipe = `<!doctype html>
<html><head><title>Best Pancakes | Some Food Blog</title>
<script>var tracking = "2 cups nonsense";</script></head>
<body>
<nav><ul class="ingredients"><li>menu item</li></ul></nav>
<article itemscope itemtype="http://schema.org/Recipe">
  <h1 itemprop="name">Fluffy   Pancakes</h1>
  <ul>
    <li itemprop="recipeIngredient">1 1/2 cups all-purpose flour, sifted</li>
    <li itemprop="recipeIngredient">2 Tbsp. sugar</li>
    <li itemprop="recipeIngredient">2 eggs</li>
    <li itemprop="recipeIngredient">   </li>
    <li itemprop="recipeIngredient">Salt</li>
  </ul>
  <ol>
    <li itemprop="recipeInstructions">Whisk the dry ingredients.</li>
    <li itemprop="recipeInstructions">Fold in the
      eggs.</li>
  </ol>
</article>
</body></html>`

const listRecipe = `<html><head>
<meta property="og:title" content="Grandma's Stew">
</head><body>
<div class="recipe-ingredients"><ul><li>1 lb of beef, cubed</li><li>3 carrots</li></ul></div>
<div class="method"><ol><li>Brown the beef.</li><li>Simmer for two hours.</li></ol></div>
</body></html>`

func TestParseRecipeReadsMicrodata(t *testing.T) {
	draft, err := ParseRecipe(strings.NewReader(microdataRecipe))
	require.NoError(t, err)

	assert.Equal(t, "Fluffy Pancakes", draft.Name)
	assert.Equal(t, []IngredientAmountInput{
		{IngredientName: "all-purpose flour", Amount: "1 1/2", Unit: "c", Descriptor: "sifted"},
		{IngredientName: "sugar", Amount: "2", Unit: "tbsp"},
		{IngredientName: "eggs", Amount: "2"},
		{IngredientName: "salt"},
	}, draft.Ingredients)
	assert.Equal(t, "Whisk the dry ingredients.\nFold in the eggs.", draft.Recipe)
}

func TestParseRecipeFallsBackToListMarkup(t *testing.T) {
	draft, err := ParseRecipe(strings.NewReader(listRecipe))
	require.NoError(t, err)

	assert.Equal(t, "Grandma's Stew", draft.Name)
	require.Len(t, draft.Ingredients, 2)
	assert.Equal(t, IngredientAmountInput{IngredientName: "beef", Amount: "1", Unit: "lb", Descriptor: "cubed"}, draft.Ingredients[0])
	assert.Equal(t, "carrots", draft.Ingredients[1].IngredientName)
	assert.Equal(t, "Brown the beef.\nSimmer for two hours.", draft.Recipe)
}

func TestParseRecipeNeedsATitle(t *testing.T) {
	_, err := ParseRecipe(strings.NewReader("<html><body><p>nothing here</p></body></html>"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseIngredientLine(t *testing.T) {
	cases := []struct {
		line string
		want IngredientAmountInput
		ok   bool
	}{
		{"2 1/2 cups flour, sifted", IngredientAmountInput{IngredientName: "flour", Amount: "2 1/2", Unit: "c", Descriptor: "sifted"}, true},
		{"½ tsp Salt", IngredientAmountInput{IngredientName: "salt", Amount: "½", Unit: "tsp"}, true},
		{"2 l milk", IngredientAmountInput{IngredientName: "milk", Amount: "2", Unit: "L"}, true},
		{"3 cloves garlic, minced", IngredientAmountInput{IngredientName: "cloves garlic", Amount: "3", Descriptor: "minced"}, true},
		{"cup of sugar", IngredientAmountInput{IngredientName: "cup of sugar"}, true},
		{"4", IngredientAmountInput{}, false},
		{"", IngredientAmountInput{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			got, ok := ParseIngredientLine(tc.line)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestImportFetchesThePage(t *testing.T) {
	var gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stew" {
			http.NotFound(w, r)
			return
		}
		gotAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(listRecipe))
	}))
	defer srv.Close()

	importer := NewRecipeImporter(srv.Client())
	ctx := context.Background()

	draft, err := importer.Import(ctx, srv.URL+"/stew")
	require.NoError(t, err)
	assert.Equal(t, "Grandma's Stew", draft.Name)
	assert.Equal(t, srv.URL+"/stew", draft.Source)
	assert.Equal(t, userAgent, gotAgent)

	_, err = importer.Import(ctx, srv.URL+"/missing")
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = importer.Import(ctx, "ftp://example.com/recipe")
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = importer.Import(ctx, "/relative/path")
	assert.ErrorIs(t, err, ErrInvalid)
}
