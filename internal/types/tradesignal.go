package types

// SignalAction is the action a computed signal recommends.
type SignalAction string

const (
	SignalActionBuy  SignalAction = "BUY"
	SignalActionSell SignalAction = "SELL"
	SignalActionHold SignalAction = "HOLD"
)

// CrossoverDirection is the direction of a detected price/MA crossover.
type CrossoverDirection string

const (
	CrossoverBullish CrossoverDirection = "bullish"
	CrossoverBearish CrossoverDirection = "bearish"
)

// Crossover describes a detected crossover event.
type Crossover struct {
	Direction CrossoverDirection `json:"direction" yaml:"direction"`
	// Strength is a normalized [0,1] estimate of how decisive the cross was
	Strength float64 `json:"strength" yaml:"strength"`
}

// TradeSignal is the output of the signal engine for a single evaluation.
type TradeSignal struct {
	Action SignalAction `json:"action" yaml:"action"`
	// Confidence is a [0,100] trend-alignment heuristic
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Reason     string  `json:"reason" yaml:"reason"`
	// Valid is false when the signal could not be computed, e.g. because the
	// live feed has not accumulated enough prices yet. Insufficient data is
	// an expected transient condition, not an error.
	Valid bool `json:"valid" yaml:"valid"`
	// Crossover is set when a crossover was detected this evaluation
	Crossover *Crossover `json:"crossover,omitempty" yaml:"crossover,omitempty"`
	// MAValue is the latest moving average value used for the decision
	MAValue float64 `json:"ma_value" yaml:"ma_value"`
	// Price is the latest price used for the decision
	Price float64 `json:"price" yaml:"price"`
}

// PriceRelation is the relation of the price to the moving average at a tick.
type PriceRelation string

const (
	RelationUnset PriceRelation = "unset"
	RelationAbove PriceRelation = "above"
	RelationBelow PriceRelation = "below"
	RelationAt    PriceRelation = "at"
)

// RelationOf classifies a price against an MA value.
func RelationOf(price, ma float64) PriceRelation {
	switch {
	case price > ma:
		return RelationAbove
	case price < ma:
		return RelationBelow
	default:
		return RelationAt
	}
}

// SignalState is the crossover-confirmation state the controller carries
// across ticks. It is mutated exactly once per tick.
type SignalState struct {
	// PrevRelation is the price/MA relation observed on the previous tick
	PrevRelation PriceRelation `json:"prev_relation" yaml:"prev_relation"`
	// TicksRemaining counts down the initialization period
	TicksRemaining int `json:"ticks_remaining" yaml:"ticks_remaining"`
	// Ready is true once the initialization period has elapsed
	Ready bool `json:"ready" yaml:"ready"`
}
