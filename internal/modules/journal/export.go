package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// SnapshotVersion is bumped whenever the snapshot layout changes
const SnapshotVersion = 1

// Snapshot is a full copy of the journal rows
type Snapshot struct {
	Version    int       `json:"version" msgpack:"version"`
	ExportedAt time.Time `json:"exported_at" msgpack:"exported_at"`
	Buys       []Buy     `json:"buys" msgpack:"buys"`
	Sells      []Sell    `json:"sells" msgpack:"sells"`
}

// Format is a snapshot encoding
type Format string

const (
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// ParseFormat maps a name to a Format, defaulting to JSON for an empty name
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatMsgpack, "mpk":
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", ErrValidation, name)
	}
}

// ContentType returns the HTTP content type of the format
func (f Format) ContentType() string {
	if f == FormatMsgpack {
		return "application/msgpack"
	}
	return "application/json"
}

// Snapshot reads every buy and sell
func (r *Repository) Snapshot(ctx context.Context) (Snapshot, error) {
	buys, err := r.ListBuys(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	sells, err := r.ListAllSells(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: r.now().UTC(),
		Buys:       buys,
		Sells:      sells,
	}, nil
}

// EncodeSnapshot writes snap to w in the given format
func EncodeSnapshot(w io.Writer, snap Snapshot, format Format) error {
	switch format {
	case FormatMsgpack:
		if err := msgpack.NewEncoder(w).Encode(snap); err != nil {
			return fmt.Errorf("failed to encode snapshot as msgpack: %w", err)
		}
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("failed to encode snapshot as json: %w", err)
		}
	default:
		return fmt.Errorf("%w: unknown export format %q", ErrValidation, format)
	}
	return nil
}

// DecodeSnapshot reads a snapshot written by EncodeSnapshot
func DecodeSnapshot(r io.Reader, format Format) (Snapshot, error) {
	var snap Snapshot
	switch format {
	case FormatMsgpack:
		if err := msgpack.NewDecoder(r).Decode(&snap); err != nil {
			return Snapshot{}, fmt.Errorf("failed to decode msgpack snapshot: %w", err)
		}
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&snap); err != nil {
			return Snapshot{}, fmt.Errorf("failed to decode json snapshot: %w", err)
		}
	default:
		return Snapshot{}, fmt.Errorf("%w: unknown export format %q", ErrValidation, format)
	}
	return snap, nil
}
