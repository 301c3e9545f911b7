package domain

import (
	"bytes"
	"encoding/json"
)

// Recipe is a meal suggestion from the recipe collaborator
type Recipe struct {
	ID           string `json:"idMeal"`
	Title        string `json:"strMeal"`
	Category     string `json:"strCategory,omitempty"`
	Area         string `json:"strArea,omitempty"`
	Instructions string `json:"strInstructions,omitempty"`
	Thumbnail    string `json:"strMealThumb,omitempty"`
	Source       string `json:"strSource,omitempty"`
}

// Recipes decodes either a single recipe object or an array of them
type Recipes []Recipe

func (r *Recipes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = nil
		return nil
	}
	if len(data) > 0 && data[0] == '{' {
		var one Recipe
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*r = Recipes{one}
		return nil
	}
	var many []Recipe
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*r = many
	return nil
}
