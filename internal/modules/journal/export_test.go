package journal

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/tradejournal/internal/database"
)

func TestParseFormat(t *testing.T) {
	testCases := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"", FormatJSON, false},
		{"json", FormatJSON, false},
		{" JSON ", FormatJSON, false},
		{"msgpack", FormatMsgpack, false},
		{"mpk", FormatMsgpack, false},
		{"xml", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseFormat(tc.input)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	assert.Equal(t, "application/json", FormatJSON.ContentType())
	assert.Equal(t, "application/msgpack", FormatMsgpack.ContentType())
}

func TestSnapshotRoundTrip(t *testing.T) {
	repo, _ := newTestRepository(t, database.DriverCgo)
	ctx := context.Background()

	buy := mustBuy(t, repo, "ACME", "2024-01-10", 10, 50)
	_, err := repo.UpdateBuyNote(ctx, buy.ID, strPtr("core holding"))
	require.NoError(t, err)
	mustBuy(t, repo, "INIT", "2024-02-10", 3, 20)
	mustSell(t, repo, buy.ID, "2024-03-01", 4, 60)

	snap, err := repo.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, SnapshotVersion, snap.Version)
	require.Len(t, snap.Buys, 2)
	require.Len(t, snap.Sells, 1)

	for _, format := range []Format{FormatJSON, FormatMsgpack} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, EncodeSnapshot(&buf, snap, format))

			decoded, err := DecodeSnapshot(&buf, format)
			require.NoError(t, err)

			assert.Equal(t, snap.Version, decoded.Version)
			assert.True(t, snap.ExportedAt.Equal(decoded.ExportedAt))
			require.Len(t, decoded.Buys, len(snap.Buys))
			for i := range snap.Buys {
				want, got := snap.Buys[i], decoded.Buys[i]
				assert.Equal(t, want.ID, got.ID)
				assert.Equal(t, want.Symbol, got.Symbol)
				assert.True(t, want.BuyDate.Equal(got.BuyDate))
				assert.Equal(t, want.Quantity, got.Quantity)
				assert.Equal(t, want.BuyPrice, got.BuyPrice)
				assert.Equal(t, want.Note, got.Note)
				assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
				if want.UpdatedAt == nil {
					assert.Nil(t, got.UpdatedAt)
				} else {
					require.NotNil(t, got.UpdatedAt)
					assert.True(t, want.UpdatedAt.Equal(*got.UpdatedAt))
				}
			}
			require.Len(t, decoded.Sells, 1)
			assert.Equal(t, snap.Sells[0].ID, decoded.Sells[0].ID)
			assert.Equal(t, snap.Sells[0].BuyID, decoded.Sells[0].BuyID)
			assert.True(t, snap.Sells[0].SellDate.Equal(decoded.Sells[0].SellDate))
		})
	}
}

func TestEncodeSnapshot_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := EncodeSnapshot(&buf, Snapshot{}, Format("xml"))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = DecodeSnapshot(&buf, Format("xml"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestEncodeSnapshot_JSONLayout(t *testing.T) {
	var buf bytes.Buffer
	snap := Snapshot{Version: 1, Buys: []Buy{{ID: "b1", Symbol: "ACME", BuyDate: date("2024-01-10"), Quantity: 1, BuyPrice: 2}}}
	require.NoError(t, EncodeSnapshot(&buf, snap, FormatJSON))
	assert.Contains(t, buf.String(), `"symbol": "ACME"`)
	assert.Contains(t, buf.String(), `"buy_date": "2024-01-10T00:00:00Z"`)
	assert.NotContains(t, buf.String(), `"note"`)
}
