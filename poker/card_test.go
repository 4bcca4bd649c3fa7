package poker

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "As", NewCard(Ace, Spades).String())
	assert.Equal(t, "2c", NewCard(Two, Clubs).String())
	assert.Equal(t, "Th", NewCard(Ten, Hearts).String())
}

func TestParseCard(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		input   string
		want    Card
		wantErr bool
	}{
		{name: "ace of spades", input: "As", want: NewCard(Ace, Spades)},
		{name: "ten with T", input: "Td", want: NewCard(Ten, Diamonds)},
		{name: "ten with 10", input: "10h", want: NewCard(Ten, Hearts)},
		{name: "lowercase", input: "qc", want: NewCard(Queen, Clubs)},
		{name: "padded", input: " 9s ", want: NewCard(Nine, Spades)},
		{name: "invalid rank", input: "Xs", wantErr: true},
		{name: "invalid suit", input: "Ax", wantErr: true},
		{name: "too short", input: "A", wantErr: true},
		{name: "too long", input: "10hh", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseCard(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCardJSON(t *testing.T) {
	t.Parallel()
	cards := MustParseCards("As", "Td", "2c")

	data, err := json.Marshal(cards)
	require.NoError(t, err)
	assert.JSONEq(t, `["As","Td","2c"]`, string(data))

	var decoded []Card
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, cards, decoded)
}

func TestFormatCards(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "As Kd Qh", FormatCards(MustParseCards("As", "Kd", "Qh")))
}
