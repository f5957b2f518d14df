package testutils

// -------------------------------------------------------------------------------------------------
// Components
// -------------------------------------------------------------------------------------------------

type Health struct {
	Value int `json:"value"`
}

func (Health) Name() string { return "Health" }

type Position struct{ X, Y int }

func (Position) Name() string { return "Position" }

type Velocity struct{ X, Y int }

func (Velocity) Name() string { return "Velocity" }

type PlayerTag struct{ Tag string }

func (PlayerTag) Name() string { return "PlayerTag" }

type Unregistered struct{}

func (Unregistered) Name() string { return "Unregistered" }

// -------------------------------------------------------------------------------------------------
// Shared components
// -------------------------------------------------------------------------------------------------

type Team struct {
	Label string `json:"label"`
}

func (Team) Name() string { return "Team" }
func (Team) Shared()      {}

type Faction struct {
	ID     int    `json:"id"`
	Banner string `json:"banner"`
}

func (Faction) Name() string { return "Faction" }
func (Faction) Shared()      {}
