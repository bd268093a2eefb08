package domain

import "sort"

// Activity describes one playable map from the static catalog. The catalog is
// external data as far as session logic is concerned; the core only indexes
// into it.
type Activity struct {
	Kind            int
	Name            string
	Difficulty      string
	MaxTurns        int
	MaxPlayers      int
	PossibleRewards []string
}

type Catalog struct {
	activities map[int]Activity
}

func NewCatalog(activities []Activity) Catalog {
	byKind := make(map[int]Activity, len(activities))
	for _, a := range activities {
		byKind[a.Kind] = a
	}
	return Catalog{activities: byKind}
}

func DefaultCatalog() Catalog {
	return NewCatalog([]Activity{
		{
			Kind:            1,
			Name:            "Verdant Plain",
			Difficulty:      "Normal",
			MaxTurns:        2,
			MaxPlayers:      5,
			PossibleRewards: []string{"Res Crystal", "Hit Crystal", "Avo Crystal", "Ddg Crystal"},
		},
		{
			Kind:            2,
			Name:            "Floral Field",
			Difficulty:      "Normal",
			MaxTurns:        2,
			MaxPlayers:      5,
			PossibleRewards: []string{"Def Crystal", "Hit Crystal", "Avo Crystal", "Ddg Crystal"},
		},
		{
			Kind:            3,
			Name:            "Mountain Peak",
			Difficulty:      "Normal",
			MaxTurns:        2,
			MaxPlayers:      5,
			PossibleRewards: []string{"Dex Crystal", "Hit Crystal", "Avo Crystal", "Ddg Crystal"},
		},
		{
			Kind:            4,
			Name:            "Winter Forest",
			Difficulty:      "Hard",
			MaxTurns:        2,
			MaxPlayers:      5,
			PossibleRewards: []string{"Spd Crystal", "Hit Crystal", "Avo Crystal", "Ddg Crystal"},
		},
		{
			Kind:            5,
			Name:            "Desert Dunes",
			Difficulty:      "Hard",
			MaxTurns:        3,
			MaxPlayers:      5,
			PossibleRewards: []string{"Crit Crystal", "Hit Crystal", "Avo Crystal", "Ddg Crystal"},
		},
	})
}

func (c Catalog) Get(kind int) (Activity, error) {
	activity, found := c.activities[kind]
	if !found {
		return Activity{}, ErrUnknownActivity
	}
	return activity, nil
}

func (c Catalog) All() []Activity {
	all := make([]Activity, 0, len(c.activities))
	for _, a := range c.activities {
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Kind < all[j].Kind })
	return all
}
