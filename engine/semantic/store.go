package semantic

import (
	"context"
	"fmt"

	"github.com/WessleyAI/tourvec/engine/domain"
	"github.com/WessleyAI/tourvec/engine/filter"
	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Reserved payload keys. They never appear in Record.Metadata.
const (
	payloadRecordID = "_record_id"
	payloadDocument = "_document"
)

const scrollPageSize = 256

// pointNamespace seeds the deterministic point UUIDs derived from record ids.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("tourvec/places"))

// keyword and integer payload indexes created with the collection.
var (
	keywordFields = []string{domain.KeyName, domain.KeyCity, domain.KeyCategory}
	integerFields = []string{domain.KeyCreatedAt}
)

// pointsAPI is the subset of pb.PointsClient the store uses.
type pointsAPI interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	SetPayload(ctx context.Context, in *pb.SetPayloadPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
	Scroll(ctx context.Context, in *pb.ScrollPoints, opts ...grpc.CallOption) (*pb.ScrollResponse, error)
	Count(ctx context.Context, in *pb.CountPoints, opts ...grpc.CallOption) (*pb.CountResponse, error)
	CreateFieldIndex(ctx context.Context, in *pb.CreateFieldIndexCollection, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
}

// collectionsAPI is the subset of pb.CollectionsClient the store uses.
type collectionsAPI interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeleteCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// VectorStore is the Qdrant-backed Backend.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pointsAPI
	collections collectionsAPI
	collection  string
}

// New creates a VectorStore connected to Qdrant at the given gRPC address.
func New(addr string, collection string) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	return &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// NewWithClients builds a VectorStore over existing clients. Close is a no-op.
func NewWithClients(points pointsAPI, collections collectionsAPI, collection string) *VectorStore {
	return &VectorStore{points: points, collections: collections, collection: collection}
}

// Close closes the underlying gRPC connection.
func (v *VectorStore) Close() error {
	if v.conn == nil {
		return nil
	}
	return v.conn.Close()
}

// EnsureCollection creates the collection and its payload indexes if it
// doesn't exist.
func (v *VectorStore) EnsureCollection(ctx context.Context, dims int) error {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("semantic: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == v.collection {
			return nil
		}
	}

	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", v.collection, err)
	}

	wait := true
	for _, f := range keywordFields {
		if err := v.createIndex(ctx, f, pb.FieldType_FieldTypeKeyword, wait); err != nil {
			return err
		}
	}
	for _, f := range integerFields {
		if err := v.createIndex(ctx, f, pb.FieldType_FieldTypeInteger, wait); err != nil {
			return err
		}
	}
	return nil
}

func (v *VectorStore) createIndex(ctx context.Context, field string, typ pb.FieldType, wait bool) error {
	_, err := v.points.CreateFieldIndex(ctx, &pb.CreateFieldIndexCollection{
		CollectionName: v.collection,
		Wait:           &wait,
		FieldName:      field,
		FieldType:      typ.Enum(),
	})
	if err != nil {
		return fmt.Errorf("semantic: index %s.%s: %w", v.collection, field, err)
	}
	return nil
}

// DeleteCollection deletes the collection.
func (v *VectorStore) DeleteCollection(ctx context.Context) error {
	_, err := v.collections.Delete(ctx, &pb.DeleteCollection{
		CollectionName: v.collection,
	})
	if err != nil {
		return fmt.Errorf("semantic: delete collection %s: %w", v.collection, err)
	}
	return nil
}

// Count returns the exact number of points in the collection.
func (v *VectorStore) Count(ctx context.Context) (int, error) {
	exact := true
	resp, err := v.points.Count(ctx, &pb.CountPoints{
		CollectionName: v.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("semantic: count: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

// Upsert stores full records. Point ids are derived from record ids so the
// same record always lands on the same point.
func (v *VectorStore) Upsert(ctx context.Context, records []VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		payload := toPayload(r.Metadata)
		payload[payloadRecordID] = toValue(r.ID)
		payload[payloadDocument] = toValue(r.Document)

		points[i] = &pb.PointStruct{
			Id: pointID(r.ID),
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: r.Embedding},
				},
			},
			Payload: payload,
		}
	}

	wait := true
	_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("semantic: upsert %d points: %w", len(records), err)
	}
	return nil
}

// SetMetadata merges metadata into existing points. Qdrant's set-payload only
// overwrites the keys it is given.
func (v *VectorStore) SetMetadata(ctx context.Context, records []Record) error {
	wait := true
	for _, r := range records {
		_, err := v.points.SetPayload(ctx, &pb.SetPayloadPoints{
			CollectionName: v.collection,
			Wait:           &wait,
			Payload:        toPayload(r.Metadata),
			PointsSelector: &pb.PointsSelector{
				PointsSelectorOneOf: &pb.PointsSelector_Points{
					Points: &pb.PointsIdsList{Ids: []*pb.PointId{pointID(r.ID)}},
				},
			},
		})
		if err != nil {
			return fmt.Errorf("semantic: set payload %s: %w", r.ID, err)
		}
	}
	return nil
}

// Get scrolls through every point matching where.
func (v *VectorStore) Get(ctx context.Context, where *filter.Predicate) ([]Record, error) {
	var (
		out    []Record
		offset *pb.PointId
		limit  = uint32(scrollPageSize)
	)
	for {
		resp, err := v.points.Scroll(ctx, &pb.ScrollPoints{
			CollectionName: v.collection,
			Filter:         toFilter(where),
			Offset:         offset,
			Limit:          &limit,
			WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		})
		if err != nil {
			return nil, fmt.Errorf("semantic: scroll: %w", err)
		}
		for _, p := range resp.GetResult() {
			out = append(out, recordFromPayload(p.GetPayload()))
		}
		offset = resp.GetNextPageOffset()
		if offset == nil {
			return out, nil
		}
	}
}

// Search performs k-NN similarity search with an optional predicate.
// Qdrant reports cosine similarity; it is converted to cosine distance.
func (v *VectorStore) Search(ctx context.Context, embedding []float32, where *filter.Predicate, limit int) ([]Hit, error) {
	resp, err := v.points.Search(ctx, &pb.SearchPoints{
		CollectionName: v.collection,
		Vector:         embedding,
		Filter:         toFilter(where),
		Limit:          uint64(limit),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("semantic: search: %w", err)
	}

	hits := make([]Hit, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		hits[i] = Hit{
			Record:   recordFromPayload(r.GetPayload()),
			Distance: 1 - float64(r.GetScore()),
		}
	}
	return hits, nil
}

func pointID(recordID string) *pb.PointId {
	id := uuid.NewSHA1(pointNamespace, []byte(recordID)).String()
	return &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: id}}
}

func toPayload(meta map[string]any) map[string]*pb.Value {
	payload := make(map[string]*pb.Value, len(meta)+2)
	for k, val := range meta {
		payload[k] = toValue(val)
	}
	return payload
}

func toValue(val any) *pb.Value {
	switch tv := val.(type) {
	case nil:
		return &pb.Value{Kind: &pb.Value_NullValue{NullValue: pb.NullValue_NULL_VALUE}}
	case string:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: tv}}
	case int:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(tv)}}
	case int64:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: tv}}
	case float64:
		return &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: tv}}
	case bool:
		return &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: tv}}
	default:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: fmt.Sprint(tv)}}
	}
}

func fromValue(v *pb.Value) any {
	switch k := v.GetKind().(type) {
	case *pb.Value_StringValue:
		return k.StringValue
	case *pb.Value_IntegerValue:
		return k.IntegerValue
	case *pb.Value_DoubleValue:
		return k.DoubleValue
	case *pb.Value_BoolValue:
		return k.BoolValue
	}
	return nil
}

func recordFromPayload(payload map[string]*pb.Value) Record {
	r := Record{Metadata: make(map[string]any, len(payload))}
	for k, val := range payload {
		switch k {
		case payloadRecordID:
			r.ID = val.GetStringValue()
		case payloadDocument:
			r.Document = val.GetStringValue()
		default:
			r.Metadata[k] = fromValue(val)
		}
	}
	return r
}

// toFilter translates a predicate into a Qdrant filter. A top-level $and
// becomes the filter's Must list; any other predicate is its only entry.
func toFilter(p *filter.Predicate) *pb.Filter {
	if p == nil {
		return nil
	}
	if p.Op == filter.OpAnd {
		must := make([]*pb.Condition, 0, len(p.Clauses))
		for _, c := range p.Clauses {
			must = append(must, toCondition(c))
		}
		return &pb.Filter{Must: must}
	}
	return &pb.Filter{Must: []*pb.Condition{toCondition(p)}}
}

func toCondition(p *filter.Predicate) *pb.Condition {
	switch p.Op {
	case filter.OpAnd:
		return &pb.Condition{ConditionOneOf: &pb.Condition_Filter{Filter: toFilter(p)}}
	case filter.OpEq:
		return fieldMatch(p.Field, p.Values[0])
	case filter.OpIn:
		return fieldMatchAny(p.Field, p.Values)
	case filter.OpGte:
		gte := float64(p.Bound)
		return fieldRange(p.Field, &pb.Range{Gte: &gte})
	case filter.OpLte:
		lte := float64(p.Bound)
		return fieldRange(p.Field, &pb.Range{Lte: &lte})
	}
	return nil
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

func fieldMatchAny(key string, values []string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keywords{Keywords: &pb.RepeatedStrings{Strings: values}},
				},
			},
		},
	}
}

func fieldRange(key string, r *pb.Range) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{Key: key, Range: r},
		},
	}
}

var _ Backend = (*VectorStore)(nil)
