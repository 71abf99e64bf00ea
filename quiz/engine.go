/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package quiz implements the "AI or IKEA?" round and score state machine.
//
// An Engine walks a fixed list of rounds. Each round is a pair of labels, one
// naming an AI product (the target) and one naming an IKEA item (the
// distractor). The first guess in a round reveals the answer; later guesses
// in the same round change nothing. Advance moves on only once the round has
// been revealed, and Restart returns to the first round at any time.
//
// Engines are not safe for concurrent use. Callers serialize commands.
package quiz

// Round is an ordered pair of labels shown together.
type Round struct {
	Labels [2]string
}

func NewRound(a, b string) Round {
	return Round{Labels: [2]string{a, b}}
}

func (r Round) has(label string) bool {
	return r.Labels[0] == label || r.Labels[1] == label
}

// GuessResult describes a revealed round. CorrectLabel and
// CorrectDescription are only set when the guess was wrong.
type GuessResult struct {
	Label              string `json:"label"`
	Correct            bool   `json:"correct"`
	Description        string `json:"description"`
	CorrectLabel       string `json:"correct_label,omitempty"`
	CorrectDescription string `json:"correct_description,omitempty"`
}

// View is the read-only projection handed to the presentation layer.
type View struct {
	Round       int          `json:"round"`            // 1-based, 0 once the game is over
	Labels      []string     `json:"labels,omitempty"` // empty once the game is over
	Revealed    bool         `json:"revealed"`
	Result      *GuessResult `json:"result,omitempty"`
	Score       int          `json:"score"`
	TotalRounds int          `json:"total_rounds"`
	GameOver    bool         `json:"game_over"`
}

type state struct {
	roundIndex int
	score      int
	selected   string
	revealed   bool
}

type Engine struct {
	catalog *Catalog
	rounds  []Round
	answers []string // target label per round, resolved at construction

	state state
}

// New validates rounds against catalog and returns an engine positioned at
// the first round.
func New(catalog *Catalog, rounds []Round) (*Engine, error) {
	if catalog == nil {
		return nil, &RoundError{Index: -1, Reason: "no catalog"}
	}
	if len(rounds) == 0 {
		return nil, &RoundError{Index: -1, Reason: "no rounds"}
	}

	answers := make([]string, len(rounds))

	for i, r := range rounds {
		if r.Labels[0] == r.Labels[1] {
			return nil, &RoundError{Index: i, Reason: "labels must differ, got " + r.Labels[0] + " twice"}
		}

		targets := 0
		for _, label := range r.Labels {
			cat, err := catalog.CategoryOf(label)
			if err != nil {
				return nil, &RoundError{Index: i, Reason: err.Error()}
			}
			if cat == Target {
				targets++
				answers[i] = label
			}
		}

		if targets != 1 {
			return nil, &RoundError{Index: i, Reason: "exactly one label must be a target"}
		}
	}

	return &Engine{
		catalog: catalog,
		rounds:  append([]Round(nil), rounds...),
		answers: answers,
	}, nil
}

func (e *Engine) TotalRounds() int {
	return len(e.rounds)
}

func (e *Engine) IsGameOver() bool {
	return e.state.roundIndex == len(e.rounds)
}

// CurrentRound returns the round being played, or false once the game is over.
func (e *Engine) CurrentRound() (Round, bool) {
	if e.IsGameOver() {
		return Round{}, false
	}

	return e.rounds[e.state.roundIndex], true
}

func (e *Engine) CorrectAnswer() (string, error) {
	if e.IsGameOver() {
		return "", ErrGameOver
	}

	return e.answers[e.state.roundIndex], nil
}

// Guess locks in label for the current round. Once a round is revealed,
// further guesses return the first result unchanged.
func (e *Engine) Guess(label string) (GuessResult, error) {
	round, ok := e.CurrentRound()
	if !ok {
		return GuessResult{}, ErrGameOver
	}

	if !round.has(label) {
		return GuessResult{}, &UnknownLabelError{Label: label}
	}

	if e.state.revealed {
		return e.result(), nil
	}

	e.state.selected = label
	e.state.revealed = true

	if label == e.answers[e.state.roundIndex] {
		e.state.score++
	}

	return e.result(), nil
}

// Advance moves to the next round. It does nothing until the current round
// is revealed, and nothing after the last round.
func (e *Engine) Advance() {
	if e.IsGameOver() || !e.state.revealed {
		return
	}

	e.state.roundIndex++
	e.state.selected = ""
	e.state.revealed = false
}

func (e *Engine) Restart() {
	e.state = state{}
}

// FinalScore is meaningful once IsGameOver reports true; before that it is
// the running score.
func (e *Engine) FinalScore() (score, total int) {
	return e.state.score, len(e.rounds)
}

func (e *Engine) View() View {
	v := View{
		Revealed:    e.state.revealed,
		Score:       e.state.score,
		TotalRounds: len(e.rounds),
		GameOver:    e.IsGameOver(),
	}

	if round, ok := e.CurrentRound(); ok {
		v.Round = e.state.roundIndex + 1
		v.Labels = []string{round.Labels[0], round.Labels[1]}
	}

	if e.state.revealed {
		r := e.result()
		v.Result = &r
	}

	return v
}

// result assumes the current round is revealed.
func (e *Engine) result() GuessResult {
	answer := e.answers[e.state.roundIndex]

	r := GuessResult{
		Label:       e.state.selected,
		Correct:     e.state.selected == answer,
		Description: e.catalog.Describe(e.state.selected),
	}

	if !r.Correct {
		r.CorrectLabel = answer
		r.CorrectDescription = e.catalog.Describe(answer)
	}

	return r
}
