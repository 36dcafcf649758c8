// Package locator ranks EBT/SNAP retailers for a shopper: category
// resolution, candidate filtering, distance annotation and sorting.
//
// # Pure ranking over caller data
//
//	ranked, _ := locator.Rank(stores, locator.Query{
//	    Category: "hotmeals",
//	    Lat:      locator.Float(34.05),
//	    Lon:      locator.Float(-118.25),
//	})
//
// # Backed by Valkey or Redis
//
//	client, _ := locator.New(ctx, locator.WithValkey("localhost:6379", ""))
//	defer client.Close()
//	_, _ = client.Stores().BatchUpsert(ctx, stores)
//	res, _ := client.Search(ctx, locator.Query{Text: "taco", Lat: &lat, Lon: &lon})
package locator
