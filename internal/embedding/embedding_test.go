package embedding

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeProducesUnitVector(t *testing.T) {
	raw := make([]float32, VectorDimension)
	raw[0] = 3
	raw[1] = 4

	vec, err := normalize(raw)
	require.NoError(t, err)
	require.True(t, IsUnitNorm(vec))
	require.InDelta(t, 0.6, vec[0], 1e-6)
	require.InDelta(t, 0.8, vec[1], 1e-6)
}

func TestNormalizeRejectsWrongDimension(t *testing.T) {
	_, err := normalize(make([]float32, 10))
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestNormalizeHandlesZeroVector(t *testing.T) {
	vec, err := normalize(make([]float32, VectorDimension))
	require.NoError(t, err)
	for _, v := range vec {
		require.Zero(t, v)
	}
}

func TestNewRejectsUnsupportedModel(t *testing.T) {
	_, err := New(Config{ModelID: "not-a-real-model"}, 10)
	require.ErrorIs(t, err, ErrUnsupportedModel)
}

func onnxAvailable() bool {
	if _, err := os.Stat("/usr/lib/libonnxruntime.so"); err == nil {
		return true
	}
	return os.Getenv("ONNX_PATH") != ""
}

func TestServiceEmbedAndCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping embedding model test in short mode")
	}
	if !onnxAvailable() {
		t.Skip("ONNX runtime not available, skipping embedding model test")
	}

	svc, err := New(DefaultConfig(), 100)
	require.NoError(t, err)
	defer svc.Close()

	ctx := context.Background()

	vec, err := svc.Embed(ctx, "hello world")
	require.NoError(t, err)
	require.Len(t, vec, VectorDimension)
	require.True(t, IsUnitNorm(vec))

	// Second call should hit the embedding cache and return an equal vector.
	vec2, err := svc.Embed(ctx, "hello world")
	require.NoError(t, err)
	require.Equal(t, vec, vec2)

	// Mutating the returned vector must not corrupt the cached copy.
	vec2[0] = 999
	vec3, err := svc.Embed(ctx, "hello world")
	require.NoError(t, err)
	require.NotEqual(t, float32(999), vec3[0])
}

func TestServiceEmbedBatch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping embedding model test in short mode")
	}
	if !onnxAvailable() {
		t.Skip("ONNX runtime not available, skipping embedding model test")
	}

	svc, err := New(DefaultConfig(), 100)
	require.NoError(t, err)
	defer svc.Close()

	vecs, err := svc.EmbedBatch(context.Background(), []string{"one", "two", "three"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for _, v := range vecs {
		require.Len(t, v, VectorDimension)
	}
}

func TestServiceEmbedRejectsEmptyInput(t *testing.T) {
	svc := &Service{cfg: DefaultConfig()}
	_, err := svc.Embed(context.Background(), "")
	require.ErrorIs(t, err, ErrEmptyInput)
}
