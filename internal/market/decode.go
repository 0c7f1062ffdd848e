package market

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/alanyoungcy/marketchat/internal/domain"
)

// flexFloat unmarshals from a JSON number, a numeric string or null. Anything
// it cannot parse becomes 0 so one malformed field never fails a snapshot.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
			*f = flexFloat(n)
			return nil
		}
	}
	*f = 0
	return nil
}

// flexString unmarshals from a JSON string or number, so numeric IDs survive.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexString(n.String())
		return nil
	}
	*f = ""
	return nil
}

// flexOutcomes unmarshals an outcome list given as objects, as bare names,
// or as a JSON array encoded inside a string. Anything else is empty.
type flexOutcomes []apiOutcome

func (f *flexOutcomes) UnmarshalJSON(data []byte) error {
	*f = nil

	var encoded string
	if err := json.Unmarshal(data, &encoded); err == nil {
		data = []byte(encoded)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}

	out := make([]apiOutcome, 0, len(items))
	for _, raw := range items {
		var o apiOutcome
		if err := json.Unmarshal(raw, &o); err != nil {
			var name flexString
			_ = json.Unmarshal(raw, &name)
			o = apiOutcome{Name: name}
		}
		out = append(out, o)
	}
	*f = out
	return nil
}

// --------------------------------------------------------------------------
// Snapshot DTOs
// --------------------------------------------------------------------------

type apiOutcome struct {
	Name  flexString `json:"name"`
	Price flexFloat  `json:"price"`
}

type apiMarket struct {
	ID             flexString   `json:"id"`
	Title          flexString   `json:"title"`
	Description    flexString   `json:"description"`
	Outcomes       flexOutcomes `json:"outcomes"`
	Volume24h      flexFloat    `json:"volume24h"`
	VolumeTotal    flexFloat    `json:"volumeTotal"`
	Liquidity      flexFloat    `json:"liquidity"`
	FavoredOutcome flexString   `json:"favoredOutcome"`
	EndTime        flexString   `json:"endTime"`
}

type apiSnapshot struct {
	Markets *[]json.RawMessage `json:"markets"`
}

var errNoMarkets = errors.New("snapshot has no markets array")

func (m *apiMarket) toDomain() domain.Market {
	dm := domain.Market{
		ID:             string(m.ID),
		Title:          string(m.Title),
		Description:    string(m.Description),
		Outcomes:       make([]domain.Outcome, len(m.Outcomes)),
		Volume24h:      float64(m.Volume24h),
		VolumeTotal:    float64(m.VolumeTotal),
		Liquidity:      float64(m.Liquidity),
		FavoredOutcome: string(m.FavoredOutcome),
		EndTime:        string(m.EndTime),
	}
	for i, o := range m.Outcomes {
		dm.Outcomes[i] = domain.Outcome{Name: string(o.Name), Price: float64(o.Price)}
	}
	return dm
}

// DecodeSnapshot parses a {"markets": [...]} document. Entries are not
// validated; order is preserved. An entry that is not an object becomes a
// zero-value market in its slot.
func DecodeSnapshot(data []byte) ([]domain.Market, error) {
	var snap apiSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("market: decode snapshot: %w", err)
	}
	if snap.Markets == nil {
		return nil, fmt.Errorf("market: decode snapshot: %w", errNoMarkets)
	}

	markets := make([]domain.Market, len(*snap.Markets))
	for i, raw := range *snap.Markets {
		var m apiMarket
		if err := json.Unmarshal(raw, &m); err != nil {
			continue
		}
		markets[i] = m.toDomain()
	}
	return markets, nil
}
