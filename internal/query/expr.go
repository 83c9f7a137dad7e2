package query

// Expr is a node of the compiled predicate. Game-scoped nodes are evaluated
// against the game row; player-scoped nodes only appear below AnyPlayer.
type Expr interface {
	isExpr()
}

type (
	// Or holds when any term holds. An empty Or is false.
	Or struct{ Terms []Expr }
	// And holds when every term holds. An empty And is true.
	And struct{ Terms []Expr }
	// True matches every game.
	True struct{}

	PlayerCountEq struct{ N int }
	// MinEloAtLeast compares the game's lowest rating; games without one never match.
	MinEloAtLeast      struct{ N int }
	WinnerNameContains struct{ Text string }
	// AnyPlayer holds when at least one player of the game satisfies Pred.
	AnyPlayer struct{ Pred Expr }

	NameContains  struct{ Text string }
	ScoreAtLeast  struct{ N int }
	RatingAtLeast struct{ N int }
	IsWinner      struct{}
	RaceIs        struct{ ID int }
	// Built holds when StructureID is in one of the first MaxRound round sets.
	Built struct{ StructureID, MaxRound int }
)

func (Or) isExpr()                 {}
func (And) isExpr()                {}
func (True) isExpr()               {}
func (PlayerCountEq) isExpr()      {}
func (MinEloAtLeast) isExpr()      {}
func (WinnerNameContains) isExpr() {}
func (AnyPlayer) isExpr()          {}
func (NameContains) isExpr()       {}
func (ScoreAtLeast) isExpr()       {}
func (RatingAtLeast) isExpr()      {}
func (IsWinner) isExpr()           {}
func (RaceIs) isExpr()             {}
func (Built) isExpr()              {}
