package lineage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"metadata-sync/core/model"
	"metadata-sync/core/storage/mocks"
)

var orders = model.TableDescriptor{Project: "prod", Dataset: "sales", Table: "orders"}

func TestStorageSource_Lineage(t *testing.T) {
	client := new(mocks.Client)
	body := `{"upstream": ["Prod.Raw.Orders", {"table": "prod.raw.payments"}, "not-a-table"], "downstream": [{"name": "prod.bi.revenue"}], "owner": "ignored"}`
	client.On("GetObject", mock.Anything, "meta", "lineage/prod.sales.orders.json", minio.GetObjectOptions{}).
		Return(io.NopCloser(strings.NewReader(body)), nil)

	refs, err := NewStorageSource(client, "meta", "lineage/").Lineage(context.Background(), orders)
	require.NoError(t, err)
	assert.Equal(t, []model.LineageRef{
		{Direction: model.LineageUpstream, Table: "Prod.Raw.Orders"},
		{Direction: model.LineageUpstream, Table: "prod.raw.payments"},
		{Direction: model.LineageDownstream, Table: "prod.bi.revenue"},
	}, refs)
	client.AssertExpectations(t)
}

func TestStorageSource_MissingSnapshot(t *testing.T) {
	client := new(mocks.Client)
	client.On("GetObject", mock.Anything, "meta", mock.Anything, mock.Anything).
		Return(nil, minio.ErrorResponse{Code: "NoSuchKey", Message: "The specified key does not exist."})

	refs, err := NewStorageSource(client, "meta", "lineage/").Lineage(context.Background(), orders)
	assert.NoError(t, err)
	assert.Nil(t, refs)
}

func TestStorageSource_StorageError(t *testing.T) {
	client := new(mocks.Client)
	client.On("GetObject", mock.Anything, "meta", mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	_, err := NewStorageSource(client, "meta", "").Lineage(context.Background(), orders)
	assert.ErrorContains(t, err, "connection refused")
}

func TestParse(t *testing.T) {
	refs, err := Parse([]byte("  "))
	assert.NoError(t, err)
	assert.Nil(t, refs)

	_, err = Parse([]byte("{broken"))
	assert.Error(t, err)
}
