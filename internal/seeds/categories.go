package seeds

import "github.com/Yates-Labs/sleuth/internal/model"

// Category is one kind of seed fact and the instruction that produces it.
type Category struct {
	// Name keys the persisted record and prefixes its file name.
	Name   string
	Prompt string
}

// SeedFactSchema constrains a response to a single list of strings.
var SeedFactSchema = model.ResponseSchema{
	Name:        "list_of_items",
	Description: "List of items",
	Schema: map[string]any{
		"title":       "List of items",
		"description": "List of items",
		"type":        "object",
		"properties": map[string]any{
			"items": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required":             []string{"items"},
		"additionalProperties": false,
	},
}

// Categories is the battery issued on every pass, in order.
var Categories = []Category{
	{
		Name: "crime_scenes",
		Prompt: "Return a list of scenes in which a crime might happen. Please return a list of at least 100 places.\n" +
			"Make sure to return a singleton (e.g. office) scene name, and not plural, namely 'office' and not 'offices'.",
	},
	{
		Name:   "female_names",
		Prompt: "Return a list of female names. Please return at least 200 names.",
	},
	{
		Name: "female_relationships",
		Prompt: "Return a list of female occupations and relationships.\n" +
			"Here are few examples:\n" +
			"    \"Adoptive Mother\",\n" +
			"    \"Camping Buddy\",\n" +
			"    \"Director\",\n" +
			"    \"Fashion Designer\",\n" +
			"    \"Partner In Crime\",\n" +
			"    \"Twin Sister\",\n" +
			"Please return at least 200 names.",
	},
	{
		Name:   "male_names",
		Prompt: "Return a list of male names. Please return at least 200 names.",
	},
	{
		Name: "male_relationships",
		Prompt: "Return a list of male occupations and relationships.\n" +
			"Here are few examples:\n" +
			"    \"Grandpa\",\n" +
			"    \"Biologist\",\n" +
			"    \"Soldier\",\n" +
			"    \"Beekeeper\",\n" +
			"    \"Music teacher\",\n" +
			"    \"Chauffeur\"\n" +
			"Please return at least 200 names.",
	},
	{
		Name:   "murder_weapons",
		Prompt: "Please create a least 50 possible murder weapons.",
	},
	{
		Name: "family_relationships",
		Prompt: "Please create a large list of family relations.\n" +
			"Return only the relation name, without any description.\n" +
			"Few examples are:\n" +
			"\"Sister\", \"Brother\", \"Aunt\", \"Uncle\", \"Cousin\", \"Grandmother\", \"Grandfather\", \"Niece\"",
	},
	{
		Name: "strong_motives",
		Prompt: "Please create a large list of murder motives.\n" +
			"Few examples are:\n" +
			"\"To avoid a conviction\",\n" +
			"\"Fear\",\n" +
			"\"To avoid a debt\",\n" +
			"\"To prevent a marriage\",",
	},
	{
		Name: "suspicious_facts",
		Prompt: "Please create a list of suspicious behaviors.\n" +
			"Few examples are:\n" +
			"\"Consistently sneaks out at night.\",\n" +
			"\"Has an unusual fascination with true crime documentaries.\",\n" +
			"\"Is estranged from their family.\",",
	},
}

// CategoryNames returns the names of Categories in order.
func CategoryNames() []string {
	names := make([]string, len(Categories))
	for i, c := range Categories {
		names[i] = c.Name
	}
	return names
}
