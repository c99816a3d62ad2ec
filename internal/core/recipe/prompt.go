package recipe

import (
	"strconv"
	"strings"
)

const promptInstructions = `Instructions:
1. Select and quantify each ingredient (including cooking oil, salt, spices or any extra ingredient used) so the total calories land within ± 5 kcal of the calorie target above. Double-check your math.
2. Ensure the primary protein source provides a meaningful protein contribution.
3. For every ingredient, report:
- name
- quantity (in grams or an appropriate unit)
- unit
- calories (fresh, raw values)
- protein (g)
4. Write minimal, clear cookingInstructions a home cook can follow.

Rules:
- Do not invent ingredients beyond the available ingredients, oil, salt, pepper, and common spices, unless needed to hit the calorie target, in which case list them explicitly.
- Return exactly one JSON object and nothing else.

Output Format:
` + "```json" + `
{
  "meal": "<meal_type>",
  "recipeName": "<brief descriptive title>",
  "ingredients": [
    {
      "name": "<ingredient_name>",
      "quantity": <quantity>,
      "unit": "<unit>",
      "calories": <calories>,
      "protein": <protein_grams>
    }
    // …repeat for each ingredient
  ],
  "cookingInstructions": "<step-by-step instructions>"
}
` + "```"

// BuildPrompt 將偏好設定組成送給模型的唯一 user 訊息。
// 相同輸入永遠產生相同字串；欄位不在此驗證。
func BuildPrompt(req RecipeRequest) string {
	var sb strings.Builder
	sb.WriteString("You are a professional, nutrition-focused recipe generator. ")
	sb.WriteString("I want to prepare a ")
	sb.WriteString(string(req.MealType))
	sb.WriteString(" that totals ")
	sb.WriteString(strconv.Itoa(req.TargetCalories))
	sb.WriteString(" kcal and ")
	sb.WriteString(FormatGrams(req.TargetProteinGrams))
	sb.WriteString(" g protein, features ")
	sb.WriteString(string(req.ProteinSource))
	sb.WriteString(" as the primary protein source, and uses only these ingredients: ")
	sb.WriteString(req.Ingredients)
	sb.WriteString(".")
	if req.CustomInstructions != "" {
		sb.WriteString(" ")
		sb.WriteString(req.CustomInstructions)
	}
	sb.WriteString("\n\n")
	sb.WriteString(promptInstructions)
	return sb.String()
}

// FormatGrams 以最短表示輸出小數，整數值保留 ".0"（30 -> "30.0"）
func FormatGrams(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
