package storage

import (
	"context"
	"testing"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/statement"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateContext(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, validateContext(context.Background()))
	assert.NoError(t, validateContext(canceled), "cancellation is the driver's business")
	//nolint:staticcheck // nil context is the case under test
	assert.ErrorIs(t, validateContext(nil), ErrNilContext)
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		wantErr error
		key     string
	}{
		{key: "yahoo:BP.L:annual"},
		{key: "plaid:HOUSEHOLD:quarterly"},
		{key: "", wantErr: ErrEmptyString},
		{key: "   ", wantErr: ErrEmptyString},
		{key: "yahoo:BP.L", wantErr: ErrInvalidKey},
		{key: "yahoo::annual", wantErr: ErrInvalidKey},
		{key: "yahoo:BP.L:annual:extra", wantErr: ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := validateKey(tt.key)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateTable(t *testing.T) {
	assert.ErrorIs(t, validateTable(nil), ErrNilParameter)
	assert.ErrorIs(t, validateTable(statement.New([]string{"2024-12-31"})), common.ErrEmptyStatement)

	table := statement.New([]string{"2024-12-31"})
	require.NoError(t, table.AddRow("Cash", []decimal.NullDecimal{decimal.NewNullDecimal(decimal.NewFromInt(10))}))
	assert.NoError(t, validateTable(table))
}

func TestValidateRepairAction(t *testing.T) {
	tests := []struct {
		name    string
		action  model.RepairAction
		wantErr bool
	}{
		{
			name:   "add pattern",
			action: model.RepairAction{SessionID: "s1", Kind: model.RepairAddPattern, Category: model.Equity, Pattern: "retained"},
		},
		{
			name:   "override",
			action: model.RepairAction{SessionID: "s1", Kind: model.RepairOverride, Category: model.Totals},
		},
		{
			name:   "abort",
			action: model.RepairAction{SessionID: "s1", Kind: model.RepairAbort},
		},
		{
			name:    "missing session",
			action:  model.RepairAction{Kind: model.RepairAbort},
			wantErr: true,
		},
		{
			name:    "pattern without expression",
			action:  model.RepairAction{SessionID: "s1", Kind: model.RepairAddPattern, Category: model.Equity},
			wantErr: true,
		},
		{
			name:    "pattern for unknown",
			action:  model.RepairAction{SessionID: "s1", Kind: model.RepairAddPattern, Category: model.Unknown, Pattern: "x"},
			wantErr: true,
		},
		{
			name:    "override to unknown",
			action:  model.RepairAction{SessionID: "s1", Kind: model.RepairOverride, Category: model.Unknown},
			wantErr: true,
		},
		{
			name:    "abort with category",
			action:  model.RepairAction{SessionID: "s1", Kind: model.RepairAbort, Category: model.Equity},
			wantErr: true,
		},
		{
			name:    "unrecognized kind",
			action:  model.RepairAction{SessionID: "s1", Kind: "delete"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRepairAction(&tt.action)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidRepairEvent)
		})
	}
}
