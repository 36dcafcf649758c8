package category

// Builtin returns the category table shipped with the service.
// Deployments override it with the categories section of the config file.
func Builtin() Table {
	rules := []Rule{
		mustRule(DefaultID, "All stores", 10, nil, nil, nil),
		mustRule("grocery", "Grocery", 10,
			nil,
			[]string{
				"Supermarket", "Super Store", "Large Grocery Store",
				"Medium Grocery Store", "Small Grocery Store", "Combination Grocery/Other",
			},
			nil,
		),
		mustRule("convenience", "Convenience", 5,
			nil,
			[]string{"Convenience Store"},
			[]string{"7-Eleven", "Circle K", "Speedway"},
		),
		mustRule("farmersmarket", "Farmers markets", 25,
			nil,
			[]string{"Farmers and Markets", "Farmers' Market", "Direct Marketing Farmer"},
			[]string{"Farmers Market", "Farm Stand"},
		),
		mustRule("hotmeals", "Hot meals (RMP)", 25,
			[]string{"CVS", "Walgreens", "Dollar", "Market"},
			[]string{"Restaurant Meals Program", "hotmeals", "Restaurant"},
			[]string{"Pizza", "Burger", "Taco", "Chicken", "Subway", "Jack in the Box", "Denny's"},
		),
		mustRule("fastfood", "Fast food", 15,
			[]string{"Gas", "Fuel"},
			[]string{"Restaurant Meals Program", "Restaurant"},
			[]string{"Burger", "Pizza", "Taco", "Subway", "Carl's Jr", "El Pollo Loco"},
		),
		mustRule("pharmacy", "Pharmacy", 10,
			nil,
			[]string{"Pharmacy"},
			[]string{"CVS", "Walgreens", "Rite Aid"},
		),
	}
	t, err := NewTable(rules)
	if err != nil {
		panic("builtin category table: " + err.Error())
	}
	return t
}

func mustRule(id, label string, radius float64, exclusions, storeTypes, namePatterns []string) Rule {
	r, err := NewRule(id, label, radius, exclusions, storeTypes, namePatterns)
	if err != nil {
		panic("builtin category rule: " + err.Error())
	}
	return r
}
