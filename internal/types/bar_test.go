package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type BarTestSuite struct {
	suite.Suite
}

func TestBarSuite(t *testing.T) {
	suite.Run(t, new(BarTestSuite))
}

func (suite *BarTestSuite) TestValid() {
	tests := []struct {
		name  string
		bar   Bar
		valid bool
	}{
		{
			name:  "valid bar",
			bar:   Bar{High: 101, Low: 99, Close: 100},
			valid: true,
		},
		{
			name:  "zero close",
			bar:   Bar{High: 101, Low: 99, Close: 0},
			valid: false,
		},
		{
			name:  "negative close",
			bar:   Bar{High: 101, Low: 99, Close: -5},
			valid: false,
		},
		{
			name:  "high below low",
			bar:   Bar{High: 99, Low: 101, Close: 100},
			valid: false,
		},
		{
			name:  "high equals low",
			bar:   Bar{High: 100, Low: 100, Close: 100},
			valid: true,
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			suite.Equal(tt.valid, tt.bar.Valid())
		})
	}
}

func (suite *BarTestSuite) TestCloses() {
	now := time.Now()
	bars := []Bar{
		{Time: now, Close: 100},
		{Time: now.Add(time.Minute), Close: 101},
		{Time: now.Add(2 * time.Minute), Close: 99},
	}

	suite.Equal([]float64{100, 101, 99}, Closes(bars))
	suite.Empty(Closes(nil))
}
