package source

// DefaultSources is the built-in catalog used when no sources file is given.
func DefaultSources() []Source {
	return []Source{
		{
			Name:    "pickles",
			Domains: []string{"pickles.com.au"},
			Tier:    TierPriority,
			Kind:    KindAuction,
			DetailPatterns: []string{
				`^/used/details/(?:[^/?#]+/)*(\d{5,})(?:[/?#]|$)`,
				`^/damaged-salvage/item/(?:[^/?#]+/)*(\d{5,})(?:[/?#]|$)`,
			},
			ResultsPatterns: []string{`^/used/search`, `^/cars(?:/[a-z0-9-]+)*/?(?:\?|$)`},
		},
		{
			Name:    "manheim",
			Domains: []string{"manheim.com.au"},
			Tier:    TierPriority,
			Kind:    KindAuction,
			DetailPatterns: []string{
				`^/(?:passenger|damaged)-vehicles/(\d{6,})(?:[/?#]|$)`,
			},
			ResultsPatterns: []string{`^/(?:passenger|damaged)-vehicles/search`},
		},
		{
			Name:    "grays",
			Domains: []string{"grays.com"},
			Tier:    TierPriority,
			Kind:    KindAuction,
			DetailPatterns: []string{
				`^/lot/(\d{4,}-\d+)(?:[/?#]|$)`,
			},
			ResultsPatterns: []string{`^/search/`, `^/automotive-trucks-and-marine/`},
		},
		{
			Name:    "lloyds",
			Domains: []string{"lloydsauctions.com.au"},
			Tier:    TierPriority,
			Kind:    KindAuction,
			DetailPatterns: []string{
				`^/lot-details/(?:[^/?#]+/)*(\d{4,})(?:[/?#]|$)`,
			},
			ResultsPatterns: []string{`^/auctions/`},
		},
		{
			Name:    "carsales",
			Domains: []string{"carsales.com.au"},
			Tier:    TierFallback,
			Kind:    KindRetail,
			DetailPatterns: []string{
				`^/cars/details/[^/?#]+/([A-Z]{2,6}(?:-[A-Z]{2,6})?-\d{5,})(?:[/?#]|$)`,
			},
		},
		{
			Name:    "autotrader",
			Domains: []string{"autotrader.com.au"},
			Tier:    TierFallback,
			Kind:    KindRetail,
			DetailPatterns: []string{
				`^/car/(\d{5,})(?:[/?#]|$)`,
			},
		},
		{
			Name:    "gumtree",
			Domains: []string{"gumtree.com.au"},
			Tier:    TierFallback,
			Kind:    KindRetail,
			DetailPatterns: []string{
				`^/s-ad/(?:[^/?#]+/)*(\d{8,})(?:[/?#]|$)`,
			},
		},
		{
			Name:    "drive",
			Domains: []string{"drive.com.au"},
			Tier:    TierFallback,
			Kind:    KindDealer,
			DetailPatterns: []string{
				`^/cars-for-sale/car/([A-Za-z0-9]{6,})(?:[/?#]|$)`,
			},
		},
	}
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := NewCatalog(DefaultSources())
	if err != nil {
		panic(err)
	}
	return c
}
