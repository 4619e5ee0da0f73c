package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUSDateGrammar_Match(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   Entry
		wantOK bool
	}{
		{
			name:   "morning entry",
			line:   ` 3/11/2026  8:30 AM        22408 <A HREF="/pub/pr/pr.class">pr.class</A>`,
			want:   Entry{Name: "pr.class", Identity: Identity{Timestamp: "3/11/2026 8:30 AM", Size: 22408}},
			wantOK: true,
		},
		{
			name:   "lower-case tags and pm",
			line:   `10/2/2025 12:01 pm 7 <a href="/x/y.txt">y.txt</a>`,
			want:   Entry{Name: "y.txt", Identity: Identity{Timestamp: "10/2/2025 12:01 PM", Size: 7}},
			wantOK: true,
		},
		{
			name:   "directory row has no size",
			line:   ` 3/11/2026  8:30 AM        &lt;dir&gt; <A HREF="/pub/pr/old/">old</A>`,
			wantOK: false,
		},
		{
			name:   "missing am/pm marker",
			line:   ` 3/11/2026  8:30        22408 <A HREF="/pub/pr/pr.class">pr.class</A>`,
			wantOK: false,
		},
		{
			name:   "trailing garbage is not a match",
			line:   ` 3/11/2026  8:30 AM        22408 <A HREF="/pub/pr/pr.class">pr.class</A> extra`,
			wantOK: false,
		},
		{
			name:   "parent directory link",
			line:   `<A HREF="/pub/">[To Parent Directory]</A>`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := USDateGrammar{}.Match(tt.line)
			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestDayMonthGrammar_Match(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   Entry
		wantOK bool
	}{
		{
			name:   "file entry",
			line:   `<a href="pr.class">pr.class</a>          11-Mar-2026 08:30    22408`,
			want:   Entry{Name: "pr.class", Identity: Identity{Timestamp: "11-Mar-2026 08:30", Size: 22408}},
			wantOK: true,
		},
		{
			name:   "name from href when text is truncated",
			line:   `<a href="/pub/pr/pr.data.0.Current">pr.data.0.Cu..&gt;</a> 11-Mar-2026 08:30 99`,
			want:   Entry{Name: "pr.data.0.Current", Identity: Identity{Timestamp: "11-Mar-2026 08:30", Size: 99}},
			wantOK: true,
		},
		{
			name:   "escaped href",
			line:   `<a href="a%2Db.txt">a-b.txt</a> 01-Jan-2026 00:00 1`,
			want:   Entry{Name: "a-b.txt", Identity: Identity{Timestamp: "01-Jan-2026 00:00", Size: 1}},
			wantOK: true,
		},
		{
			name:   "icon before link",
			line:   `<img src="/icons/text.gif" alt="[TXT]"> <a href="pr.class">pr.class</a>  11-Mar-2026 08:30  22408`,
			want:   Entry{Name: "pr.class", Identity: Identity{Timestamp: "11-Mar-2026 08:30", Size: 22408}},
			wantOK: true,
		},
		{
			name:   "icon before directory",
			line:   `<img src="/icons/folder.gif" alt="[DIR]"> <a href="archive/">archive/</a>  01-Jan-2026 10:00  -`,
			wantOK: false,
		},
		{
			name:   "directory entry",
			line:   `<a href="archive/">archive/</a>   01-Jan-2026 10:00    -`,
			wantOK: false,
		},
		{
			name:   "parent link",
			line:   `<a href="../">../</a>`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DayMonthGrammar{}.Match(tt.line)
			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestGrammarByName(t *testing.T) {
	g, err := GrammarByName("us-date")
	require.NoError(t, err)
	assert.Equal(t, GrammarUSDate, g.Name())

	g, err = GrammarByName("Day-Month")
	require.NoError(t, err)
	assert.Equal(t, GrammarDayMonth, g.Name())

	g, err = GrammarByName("auto")
	require.NoError(t, err)
	assert.Nil(t, g)

	_, err = GrammarByName("xml")
	assert.Error(t, err)
}
