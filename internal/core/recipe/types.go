package recipe

import (
	"time"
)

// MealType 餐別
type MealType string

const (
	MealBreakfast MealType = "Breakfast"
	MealLunch     MealType = "Lunch"
	MealDinner    MealType = "Dinner"
	MealSnack     MealType = "Snack"
)

// MealTypes 表單下拉選單的順序
var MealTypes = []MealType{MealBreakfast, MealLunch, MealDinner, MealSnack}

// Valid 是否為支援的餐別
func (m MealType) Valid() bool {
	for _, v := range MealTypes {
		if m == v {
			return true
		}
	}
	return false
}

// ProteinSource 主要蛋白質來源
type ProteinSource string

const (
	ProteinChicken ProteinSource = "Chicken"
	ProteinBeef    ProteinSource = "Beef"
	ProteinPork    ProteinSource = "Pork"
	ProteinTofu    ProteinSource = "Tofu"
	ProteinBeans   ProteinSource = "Beans"
	ProteinFish    ProteinSource = "Fish"
	ProteinEggs    ProteinSource = "Eggs"
)

// ProteinSources 表單單選的順序
var ProteinSources = []ProteinSource{
	ProteinChicken, ProteinBeef, ProteinPork, ProteinTofu, ProteinBeans, ProteinFish, ProteinEggs,
}

// Valid 是否為支援的蛋白質來源
func (p ProteinSource) Valid() bool {
	for _, v := range ProteinSources {
		if p == v {
			return true
		}
	}
	return false
}

// RecipeRequest 單次提交的偏好設定
type RecipeRequest struct {
	MealType           MealType      `json:"meal_type"`
	Ingredients        string        `json:"ingredients"`
	TargetCalories     int           `json:"target_calories"`
	TargetProteinGrams float64       `json:"target_protein_grams"`
	ProteinSource      ProteinSource `json:"protein_source"`
	CustomInstructions string        `json:"custom_instructions"`
}

// RecipeRecord 一次成功生成的紀錄，建立後不再修改
type RecipeRecord struct {
	Timestamp time.Time `json:"timestamp"`
	RecipeRequest
	RecipeText string `json:"recipe_text"`
}
