package credits

// Pack is a purchasable bundle of credits. Prices are in cents.
type Pack struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Credits        int    `json:"credits"`
	Price          int    `json:"price"`
	PricePerCredit int    `json:"pricePerCredit"`
	Popular        bool   `json:"popular,omitempty"`
}

var packs = []Pack{
	{ID: "starter", Name: "Starter", Credits: 5, Price: 499, PricePerCredit: 100},
	{ID: "popular", Name: "Popular", Credits: 15, Price: 1199, PricePerCredit: 80, Popular: true},
	{ID: "pro", Name: "Pro", Credits: 50, Price: 3499, PricePerCredit: 70},
}

// Packs returns the pack catalogue in display order.
func Packs() []Pack {
	out := make([]Pack, len(packs))
	copy(out, packs)
	return out
}

func PackByID(id string) (Pack, error) {
	for _, p := range packs {
		if p.ID == id {
			return p, nil
		}
	}
	return Pack{}, ErrUnknownPack
}
