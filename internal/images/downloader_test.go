package images

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/amazon-pdp-exporter/internal/models"
)

func TestConsume_SavesImagesPerASIN(t *testing.T) {
	root := t.TempDir()
	d := NewDownloader(root)

	httpmock.ActivateNonDefault(d.Client().GetClient())
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://m.media-amazon.com/images/I/AAA._SL1500_.jpg",
		httpmock.NewStringResponder(200, "jpeg-bytes-a"))
	httpmock.RegisterResponder("GET", "https://m.media-amazon.com/images/I/BBB._SL1500_.jpg",
		httpmock.NewStringResponder(200, "jpeg-bytes-b"))

	record := models.NewRecord("B0IMAGE001")
	record.ImageURLs = []string{
		"https://m.media-amazon.com/images/I/AAA._SL1500_.jpg",
		"https://m.media-amazon.com/images/I/BBB._SL1500_.jpg",
	}
	record.ImageCount = 2

	require.NoError(t, d.Consume(context.Background(), record))

	first, err := os.ReadFile(filepath.Join(root, "B0IMAGE001", "image_1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes-a", string(first))

	second, err := os.ReadFile(filepath.Join(root, "B0IMAGE001", "image_2.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes-b", string(second))
}

func TestConsume_ToleratesFailedImage(t *testing.T) {
	root := t.TempDir()
	d := NewDownloader(root)

	httpmock.ActivateNonDefault(d.Client().GetClient())
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://m.media-amazon.com/images/I/GONE._SL1500_.jpg",
		httpmock.NewStringResponder(404, "not found"))
	httpmock.RegisterResponder("GET", "https://m.media-amazon.com/images/I/OKAY._SL1500_.jpg",
		httpmock.NewStringResponder(200, "jpeg-bytes"))

	record := models.NewRecord("B0IMAGE002")
	record.ImageURLs = []string{
		"https://m.media-amazon.com/images/I/GONE._SL1500_.jpg",
		"https://m.media-amazon.com/images/I/OKAY._SL1500_.jpg",
	}
	record.ImageCount = 2

	require.NoError(t, d.Consume(context.Background(), record))

	_, err := os.Stat(filepath.Join(root, "B0IMAGE002", "image_2.jpg"))
	assert.NoError(t, err, "remaining images still download after one fails")
}

func TestConsume_NoImagesIsNoop(t *testing.T) {
	root := t.TempDir()
	d := NewDownloader(root)

	require.NoError(t, d.Consume(context.Background(), models.NewRecord("B0IMAGE003")))

	_, err := os.Stat(filepath.Join(root, "B0IMAGE003"))
	assert.True(t, os.IsNotExist(err), "no directory is created for an empty record")
}
