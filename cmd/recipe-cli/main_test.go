package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"macro-recipe-generator/internal/core/ai/provider"
	"macro-recipe-generator/internal/core/recipe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cannedCompleter struct {
	n int
}

func (c *cannedCompleter) Complete(ctx context.Context, req *provider.Request) (string, error) {
	c.n++
	return fmt.Sprintf("recipe #%d", c.n), nil
}

func TestBuildFromFlags(t *testing.T) {
	f := requestFlags{
		mealType:    "Lunch",
		ingredients: "rice, beans",
		calories:    600,
		protein:     35,
		source:      "Beans",
	}
	req, err := f.build()
	require.NoError(t, err)
	assert.Equal(t, recipe.MealLunch, req.MealType)
	assert.Equal(t, recipe.ProteinBeans, req.ProteinSource)
	assert.Equal(t, 600, req.TargetCalories)
}

func TestBuildRejectsUnknownValues(t *testing.T) {
	_, err := (&requestFlags{mealType: "Brunch", source: "Chicken"}).build()
	assert.Error(t, err)

	_, err = (&requestFlags{mealType: "Lunch", source: "Lamb"}).build()
	assert.Error(t, err)

	_, err = (&requestFlags{mealType: "Lunch", source: "Chicken", calories: -1}).build()
	assert.Error(t, err)

	_, err = (&requestFlags{mealType: "Lunch", source: "Chicken", protein: math.Inf(1)}).build()
	assert.Error(t, err)

	_, err = (&requestFlags{mealType: "Lunch", source: "Chicken", protein: math.NaN()}).build()
	assert.Error(t, err)
}

func TestBuildFromRequestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "request.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"meal_type": "Snack",
		"ingredients": "yogurt, berries",
		"target_calories": 200,
		"target_protein_grams": 15.5,
		"protein_source": "Eggs"
	}`), 0o644))

	req, err := (&requestFlags{requestFile: path}).build()
	require.NoError(t, err)
	assert.Equal(t, recipe.MealSnack, req.MealType)
	assert.Equal(t, 15.5, req.TargetProteinGrams)

	require.NoError(t, os.WriteFile(path, []byte(`{"meal_type":"Snack","calories":200}`), 0o644))
	_, err = (&requestFlags{requestFile: path}).build()
	assert.Error(t, err, "unknown fields are rejected")
}

func TestRunGenerateText(t *testing.T) {
	svc := recipe.NewRecipeService(&cannedCompleter{})
	req := recipe.RecipeRequest{MealType: recipe.MealDinner, Ingredients: "tofu", ProteinSource: recipe.ProteinTofu}

	var out bytes.Buffer
	require.NoError(t, runGenerate(context.Background(), &out, svc, req, 2, false))

	text := out.String()
	assert.Contains(t, text, "Your Dinner Recipe")
	assert.Contains(t, text, "recipe #1")
	// 最新的排在最前面
	history := text[strings.Index(text, "History"):]
	assert.Less(t, strings.Index(history, "recipe #2..."), strings.Index(history, "recipe #1..."))
}

func TestRunGenerateJSON(t *testing.T) {
	svc := recipe.NewRecipeService(&cannedCompleter{})
	req := recipe.RecipeRequest{MealType: recipe.MealSnack, Ingredients: "nuts", ProteinSource: recipe.ProteinBeans}

	var out bytes.Buffer
	require.NoError(t, runGenerate(context.Background(), &out, svc, req, 3, true))

	var records []recipe.RecipeRecord
	require.NoError(t, json.Unmarshal(out.Bytes(), &records))
	require.Len(t, records, 3)
	assert.Equal(t, "recipe #1", records[0].RecipeText)
}

func TestRunGenerateEmptyIngredients(t *testing.T) {
	svc := recipe.NewRecipeService(&cannedCompleter{})
	err := runGenerate(context.Background(), &bytes.Buffer{}, svc, recipe.RecipeRequest{MealType: recipe.MealLunch}, 1, false)
	assert.ErrorIs(t, err, recipe.ErrNoIngredients)
}
