package main

import (
	"fmt"
	"math"
	"os"

	"macro-recipe-generator/internal/core/recipe"
	"macro-recipe-generator/internal/pkg/common"

	"github.com/spf13/cobra"
)

// requestFlags 對應表單欄位的命令列參數
type requestFlags struct {
	mealType     string
	ingredients  string
	calories     int
	protein      float64
	source       string
	instructions string
	requestFile  string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.mealType, "meal", "m", string(recipe.MealBreakfast), "Meal type (Breakfast, Lunch, Dinner, Snack)")
	cmd.Flags().StringVarP(&f.ingredients, "ingredients", "i", "", "Available ingredients, free text")
	cmd.Flags().IntVarP(&f.calories, "calories", "c", 500, "Target calories (kcal)")
	cmd.Flags().Float64VarP(&f.protein, "protein", "p", 30, "Target protein (grams)")
	cmd.Flags().StringVarP(&f.source, "source", "s", string(recipe.ProteinChicken), "Primary protein source")
	cmd.Flags().StringVar(&f.instructions, "instructions", "", "Extra free-text instructions")
	cmd.Flags().StringVarP(&f.requestFile, "request", "r", "", "Read the request from a JSON file instead of flags")
}

// build 組出 RecipeRequest；指定 --request 時以檔案內容為準
func (f *requestFlags) build() (recipe.RecipeRequest, error) {
	var req recipe.RecipeRequest
	if f.requestFile != "" {
		file, err := os.Open(f.requestFile)
		if err != nil {
			return req, fmt.Errorf("failed to open request file: %w", err)
		}
		defer file.Close()

		if err := common.DecodeJSONStrict(file, &req); err != nil {
			return req, fmt.Errorf("failed to parse request file: %w", err)
		}
	} else {
		req = recipe.RecipeRequest{
			MealType:           recipe.MealType(f.mealType),
			Ingredients:        f.ingredients,
			TargetCalories:     f.calories,
			TargetProteinGrams: f.protein,
			ProteinSource:      recipe.ProteinSource(f.source),
			CustomInstructions: f.instructions,
		}
	}

	if !req.MealType.Valid() {
		return req, fmt.Errorf("unsupported meal type %q", req.MealType)
	}
	if !req.ProteinSource.Valid() {
		return req, fmt.Errorf("unsupported protein source %q", req.ProteinSource)
	}
	if math.IsInf(req.TargetProteinGrams, 0) || math.IsNaN(req.TargetProteinGrams) {
		return req, fmt.Errorf("protein target must be a finite number")
	}
	if req.TargetCalories < 0 || req.TargetProteinGrams < 0 {
		return req, fmt.Errorf("targets must not be negative")
	}
	return req, nil
}
