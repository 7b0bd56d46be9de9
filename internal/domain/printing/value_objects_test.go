package printing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePageSelection(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		want    PageSelection
		wantErr bool
	}{
		{"all token", "all", PageSelection{}, false},
		{"empty means all", "", PageSelection{}, false},
		{"single page", "3", PageSelection{From: 3, To: 3}, false},
		{"range", "2-5", PageSelection{From: 2, To: 5}, false},
		{"degenerate range", "4-4", PageSelection{From: 4, To: 4}, false},
		{"reversed range", "5-2", PageSelection{}, true},
		{"zero page", "0", PageSelection{}, true},
		{"open range", "2-", PageSelection{}, true},
		{"list", "1,3", PageSelection{}, true},
		{"spaces", " 1-2", PageSelection{}, true},
		{"uppercase all", "ALL", PageSelection{}, true},
		{"negative", "-1", PageSelection{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePageSelection(tt.expr)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPageSelection_String(t *testing.T) {
	assert.Equal(t, "all", PageSelection{}.String())
	assert.Equal(t, "7", PageSelection{From: 7, To: 7}.String())
	assert.Equal(t, "1-9", PageSelection{From: 1, To: 9}.String())
	assert.True(t, PageSelection{}.IsAll())
}

func TestJobOptions_PagesPerSheet(t *testing.T) {
	tests := []struct {
		name     string
		opts     JobOptions
		expected int
	}{
		{"single sided", JobOptions{DuplexMode: DuplexModeSingle, PageLayout: PageLayoutStandard}, 1},
		{"double sided", JobOptions{DuplexMode: DuplexModeDouble, PageLayout: PageLayoutStandard}, 2},
		{"booklet ignores duplex", JobOptions{DuplexMode: DuplexModeDouble, PageLayout: PageLayoutBooklet}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.opts.PagesPerSheet())
		})
	}
}

func TestJobOptions_SpreadsheetOverride(t *testing.T) {
	opts := JobOptions{MarginProfile: MarginProfileNarrow, SourceFormat: SourceFormatXLSX}
	assert.True(t, opts.FitToPage())
	assert.Equal(t, MarginProfileNormal, opts.EffectiveMargins())

	opts.SourceFormat = SourceFormatDOCX
	assert.False(t, opts.FitToPage())
	assert.Equal(t, MarginProfileNarrow, opts.EffectiveMargins())
}
