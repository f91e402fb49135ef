package mock

import "github.com/arrmate/arrmate/internal/arr/types"

// NewDemo returns a mock backend with a small library for developer mode.
func NewDemo() *Client {
	c := New()
	c.WithLibrary(
		types.LibraryItem{ID: "1", ForeignID: "71035", Title: "Angel", Year: 1999, Monitored: true, HasFile: true,
			Seasons: []types.SeasonInfo{{Number: 1, Monitored: true, EpisodeCount: 3, EpisodeFileCount: 2}}},
		types.LibraryItem{ID: "2", ForeignID: "81189", Title: "Breaking Bad", Year: 2008, Monitored: true, HasFile: true,
			Seasons: []types.SeasonInfo{{Number: 1, Monitored: true, EpisodeCount: 2, EpisodeFileCount: 2}}},
		types.LibraryItem{ID: "3", ForeignID: "78", Title: "Blade Runner", Year: 1982, Monitored: true, HasFile: true},
	)
	c.WithEpisodes("1",
		types.Episode{ID: "101", Season: 1, Number: 1, Title: "City Of", HasFile: true, FileID: "9001"},
		types.Episode{ID: "102", Season: 1, Number: 2, Title: "Lonely Heart", HasFile: true, FileID: "9002"},
		types.Episode{ID: "103", Season: 1, Number: 3, Title: "In the Dark"},
	)
	c.WithEpisodes("2",
		types.Episode{ID: "201", Season: 1, Number: 1, Title: "Pilot", HasFile: true, FileID: "9101"},
		types.Episode{ID: "202", Season: 1, Number: 2, Title: "Cat's in the Bag...", HasFile: true, FileID: "9102"},
	)
	c.WithCatalog(
		types.CatalogItem{ForeignID: "603", Title: "The Matrix", Year: 1999},
		types.CatalogItem{ForeignID: "624860", Title: "The Matrix Resurrections", Year: 2021},
		types.CatalogItem{ForeignID: "335984", Title: "Blade Runner 2049", Year: 2017},
		types.CatalogItem{ForeignID: "1396", Title: "Breaking Bad: El Camino", Year: 2019},
	)
	return c
}

// NewDemoMovies returns a mock movie backend for developer mode.
func NewDemoMovies() *Client {
	c := New()
	c.WithLibrary(
		types.LibraryItem{ID: "3", ForeignID: "78", Title: "Blade Runner", Year: 1982, Monitored: true, HasFile: true, Status: "released"},
		types.LibraryItem{ID: "4", ForeignID: "62", Title: "2001: A Space Odyssey", Year: 1968, Monitored: true, HasFile: true, Status: "released"},
		types.LibraryItem{ID: "5", ForeignID: "438631", Title: "Dune", Year: 2021, Monitored: true, Status: "released"},
	)
	c.WithCatalog(
		types.CatalogItem{ForeignID: "603", Title: "The Matrix", Year: 1999},
		types.CatalogItem{ForeignID: "624860", Title: "The Matrix Resurrections", Year: 2021},
		types.CatalogItem{ForeignID: "335984", Title: "Blade Runner 2049", Year: 2017},
		types.CatalogItem{ForeignID: "841", Title: "Dune", Year: 1984},
	)
	return c
}
