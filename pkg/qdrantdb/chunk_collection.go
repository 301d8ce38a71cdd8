package qdrantdb

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"smartchunk/chunk"
	"smartchunk/pkg/embedding"
)

var idNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// EnsureChunkCollection creates the chunk collection if it does not exist.
func (c *Client) EnsureChunkCollection(ctx context.Context, name string, vectorSize int) error {
	exists, err := c.Client.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = c.Client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(vectorSize),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("err create chunk collection: %w", err)
	}

	_, err = c.Client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: name,
		FieldName:      "content_hash",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("err create content_hash index: %w", err)
	}
	return nil
}

// UpsertChunks stores chunks with their mean unit embeddings. Chunks with
// no embedded units are skipped; point ids are content-derived so repeated
// runs of the same document are idempotent.
func (c *Client) UpsertChunks(ctx context.Context, collection, docID string, chunks []chunk.Chunk, units []chunk.Unit) (int, error) {
	var points []*qdrant.PointStruct

	for _, ch := range chunks {
		var vectors [][]float32
		for i := ch.FirstUnit; i <= ch.LastUnit && i < len(units); i++ {
			vectors = append(vectors, units[i].Embedding)
		}
		vec := embedding.Mean(vectors)
		if vec == nil {
			continue
		}

		hash := sha256.Sum256([]byte(ch.Text))
		id := uuid.NewSHA1(idNamespace, hash[:16]).String()

		payload := map[string]any{
			"doc_id":       docID,
			"chunk_id":     int64(ch.ID),
			"text":         ch.Text,
			"token_count":  int64(ch.Tokens),
			"start_offset": int64(ch.Start),
			"end_offset":   int64(ch.End),
			"heading_path": strings.Join(ch.HeadingPath, " / "),
			"oversized":    ch.Oversized,
			"content_hash": fmt.Sprintf("%x", hash[:16]),
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(id),
			Vectors: qdrant.NewVectorsDense(vec),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	if len(points) == 0 {
		return 0, nil
	}

	_, err := c.Client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         points,
	})
	if err != nil {
		return 0, fmt.Errorf("err upsert chunks: %w", err)
	}
	return len(points), nil
}
