package market

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestDecodeSnapshot_Tolerant(t *testing.T) {
	data := []byte(`{"markets": [
		{
			"id": "m1",
			"title": "Manchester City to win Premier League",
			"description": "EPL 2025/26",
			"outcomes": [{"name": "Yes", "price": 0.58}, {"name": "No", "price": "0.42"}],
			"volume24h": "1250000.5",
			"volumeTotal": 9000000,
			"liquidity": null,
			"favoredOutcome": "Yes",
			"endTime": "2026-05-24T15:00:00Z"
		},
		{"id": 17, "title": null, "volume24h": "n/a", "liquidity": true}
	]}`)

	markets, err := DecodeSnapshot(data)
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, len(markets))

	m := markets[0]
	assert.Equal(t, "m1", m.ID)
	assert.Equal(t, 0.42, m.Outcomes[1].Price)
	assert.Equal(t, 1250000.5, m.Volume24h)
	assert.Equal(t, float64(9000000), m.VolumeTotal)
	assert.Equal(t, float64(0), m.Liquidity)
	assert.Equal(t, "Yes", m.FavoredOutcome)

	odd := markets[1]
	assert.Equal(t, "17", odd.ID)
	assert.Equal(t, "", odd.Title)
	assert.Equal(t, float64(0), odd.Volume24h)
	assert.Equal(t, float64(0), odd.Liquidity)
	assert.Equal(t, 0, len(odd.Outcomes))
}

func TestDecodeSnapshot_BadFieldKeepsBatch(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		id       string
		title    string
		outcomes []string
	}{
		{
			name:  "numeric title",
			data:  `{"markets":[{"id":"a","title":"Good market"},{"id":"b","title":2024}]}`,
			id:    "b",
			title: "2024",
		},
		{
			name:  "object description and array end time",
			data:  `{"markets":[{"id":"a"},{"id":"b","title":"T","description":{"x":1},"endTime":[1]}]}`,
			id:    "b",
			title: "T",
		},
		{
			name:     "outcomes encoded as a string",
			data:     `{"markets":[{"id":"a"},{"id":"b","outcomes":"[\"Yes\",\"No\"]"}]}`,
			id:       "b",
			outcomes: []string{"Yes", "No"},
		},
		{
			name:     "outcomes as bare names",
			data:     `{"markets":[{"id":"a"},{"id":"b","outcomes":["Up","Down"]}]}`,
			id:       "b",
			outcomes: []string{"Up", "Down"},
		},
		{
			name: "unparseable outcomes",
			data: `{"markets":[{"id":"a"},{"id":"b","outcomes":"not a list"}]}`,
			id:   "b",
		},
		{
			name: "outcomes object",
			data: `{"markets":[{"id":"a"},{"id":"b","outcomes":{"Yes":0.5}}]}`,
			id:   "b",
		},
		{
			name: "entry not an object",
			data: `{"markets":[{"id":"a"},42]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			markets, err := DecodeSnapshot([]byte(tt.data))
			assert.Equal(t, nil, err)
			assert.Equal(t, 2, len(markets))
			assert.Equal(t, "a", markets[0].ID)

			m := markets[1]
			assert.Equal(t, tt.id, m.ID)
			assert.Equal(t, tt.title, m.Title)

			var names []string
			for _, o := range m.Outcomes {
				names = append(names, o.Name)
			}
			assert.Equal(t, tt.outcomes, names)
		})
	}
}

func TestDecodeSnapshot_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: `<html>`},
		{name: "missing markets", data: `{"events": []}`},
		{name: "markets not an array", data: `{"markets": {}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSnapshot([]byte(tt.data))
			assert.NotEqual(t, nil, err)
		})
	}
}

func TestDecodeSnapshot_EmptyArray(t *testing.T) {
	markets, err := DecodeSnapshot([]byte(`{"markets": []}`))
	assert.Equal(t, nil, err)
	assert.Equal(t, 0, len(markets))
}
