package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dwesselviax/EstateLogger/internal/common"
	"github.com/dwesselviax/EstateLogger/internal/entity"
	"github.com/dwesselviax/EstateLogger/internal/extraction"
)

const CatalogServiceName = "estatelogger.v1.CatalogService"

// CatalogServer is the gRPC surface. Requests and responses are
// google.protobuf.Struct values carrying the same JSON shapes as the HTTP API.
type CatalogServer interface {
	ExtractItems(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EnrichItem(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EnrichEstate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PublishEstate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteItems(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAuction(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type catalogMethod func(CatalogServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

var catalogMethods = map[string]catalogMethod{
	"ExtractItems":  CatalogServer.ExtractItems,
	"EnrichItem":    CatalogServer.EnrichItem,
	"EnrichEstate":  CatalogServer.EnrichEstate,
	"PublishEstate": CatalogServer.PublishEstate,
	"DeleteItems":   CatalogServer.DeleteItems,
	"GetAuction":    CatalogServer.GetAuction,
}

// CatalogServiceDesc is written by hand since the messages are well-known types.
var CatalogServiceDesc = grpc.ServiceDesc{
	ServiceName: CatalogServiceName,
	HandlerType: (*CatalogServer)(nil),
	Methods:     catalogMethodDescs(),
	Streams:     []grpc.StreamDesc{},
	Metadata:    "estatelogger/v1/catalog.proto",
}

func catalogMethodDescs() []grpc.MethodDesc {
	names := []string{"ExtractItems", "EnrichItem", "EnrichEstate", "PublishEstate", "DeleteItems", "GetAuction"}
	out := make([]grpc.MethodDesc, 0, len(names))
	for _, name := range names {
		out = append(out, grpc.MethodDesc{MethodName: name, Handler: unaryHandler(name, catalogMethods[name])})
	}
	return out
}

func unaryHandler(name string, call catalogMethod) grpc.MethodHandler {
	fullMethod := "/" + CatalogServiceName + "/" + name
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CatalogServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(CatalogServer), ctx, req.(*structpb.Struct))
		})
	}
}

func RegisterCatalogServer(s grpc.ServiceRegistrar, srv CatalogServer) {
	s.RegisterService(&CatalogServiceDesc, srv)
}

// NewGRPCServer returns a server with the catalog, health and reflection
// services registered.
func NewGRPCServer(svc Services, logger *slog.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(requestLogger(logger)))
	grpcServer := grpc.NewServer(opts...)
	RegisterCatalogServer(grpcServer, NewCatalogService(svc, logger))

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(CatalogServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)
	return grpcServer, healthServer
}

// requestLogger tags the context with a request id and logs each call.
func requestLogger(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx = common.WithRequestID(ctx, uuid.NewString())
		start := time.Now()
		resp, err := handler(ctx, req)
		l := common.LoggerFrom(ctx, logger).With("method", info.FullMethod, "elapsed_ms", time.Since(start).Milliseconds())
		if err != nil {
			l.Warn("grpc.request_failed", "error", err)
		} else {
			l.Debug("grpc.request")
		}
		return resp, err
	}
}

// CatalogService implements CatalogServer over the domain services.
type CatalogService struct {
	svc    Services
	logger *slog.Logger
}

var _ CatalogServer = (*CatalogService)(nil)

func NewCatalogService(svc Services, logger *slog.Logger) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogService{svc: svc, logger: logger}
}

type estateRequest struct {
	EstateID string `json:"estateId"`
}

func (r estateRequest) id() (uuid.UUID, error) {
	if err := common.NewValidator().Field("estateId", r.EstateID, common.Required, common.UUID).Error(); err != nil {
		return uuid.Nil, err
	}
	return uuid.MustParse(r.EstateID), nil
}

func (s *CatalogService) ExtractItems(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req extractRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Transcript) == "" {
		return encodeStruct(extractResponse{Items: []*entity.Item{}})
	}
	if err := common.NewValidator().
		Field("estateId", req.EstateID, common.Required, common.UUID).
		Field("sessionId", req.SessionID, common.UUID).
		Error(); err != nil {
		return nil, common.GRPCStatus(err)
	}
	r := extraction.Request{Transcript: req.Transcript, EstateID: uuid.MustParse(req.EstateID)}
	if req.SessionID != nil && *req.SessionID != "" {
		sid := uuid.MustParse(*req.SessionID)
		r.SessionID = &sid
	}
	items, err := s.svc.Extraction.Extract(ctx, r)
	if err != nil {
		return nil, common.GRPCStatus(err)
	}
	return encodeStruct(extractResponse{Items: items})
}

func (s *CatalogService) EnrichItem(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req enrichRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	if err := common.NewValidator().Field("itemId", req.ItemID, common.Required, common.UUID).Error(); err != nil {
		return nil, common.GRPCStatus(err)
	}
	e, err := s.svc.Enrichment.EnrichItem(ctx, uuid.MustParse(req.ItemID))
	if err != nil {
		return nil, common.GRPCStatus(err)
	}
	return encodeStruct(enrichResponse{Enrichment: e})
}

// EnrichEstate runs the batch inline and returns its summary. Progress is
// only logged; HTTP clients wanting progress use the background queue.
func (s *CatalogService) EnrichEstate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req estateRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	id, err := req.id()
	if err != nil {
		return nil, common.GRPCStatus(err)
	}
	logger := common.LoggerFrom(ctx, s.logger).With("estate_id", id)
	res, err := s.svc.Orchestrator.EnrichEstate(ctx, id, func(done, total int) {
		logger.Debug("grpc.enrich_estate.progress", "done", done, "total", total)
	})
	if err != nil {
		return nil, common.GRPCStatus(err)
	}
	return encodeStruct(res)
}

func (s *CatalogService) PublishEstate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req estateRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	id, err := req.id()
	if err != nil {
		return nil, common.GRPCStatus(err)
	}
	n, err := s.svc.Gate.PublishEstate(ctx, id)
	if err != nil {
		return nil, common.GRPCStatus(err)
	}
	return encodeStruct(countResponse{Count: n})
}

func (s *CatalogService) DeleteItems(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req idsRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	ids, err := req.parse()
	if err != nil {
		return nil, common.GRPCStatus(err)
	}
	n, err := s.svc.Gate.DeleteItems(ctx, ids)
	if err != nil {
		return nil, common.GRPCStatus(err)
	}
	return encodeStruct(countResponse{Count: n})
}

func (s *CatalogService) GetAuction(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req estateRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	id, err := req.id()
	if err != nil {
		return nil, common.GRPCStatus(err)
	}
	a, err := s.svc.Gate.Auction(ctx, id)
	if err != nil {
		return nil, common.GRPCStatus(err)
	}
	return encodeStruct(a)
}

func decodeStruct(in *structpb.Struct, v any) error {
	b, err := protojson.Marshal(in)
	if err != nil {
		return common.InvalidArgumentErrorf("request: %v", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return common.InvalidArgumentErrorf("request: %v", err)
	}
	return nil
}

func encodeStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, common.InternalError("encode response")
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, common.InternalError("encode response")
	}
	return out, nil
}

// CatalogClient calls CatalogService methods by name.
type CatalogClient struct {
	cc grpc.ClientConnInterface
}

func NewCatalogClient(cc grpc.ClientConnInterface) *CatalogClient {
	return &CatalogClient{cc: cc}
}

// Call invokes method with in as the request body and decodes the response
// into out, which may be nil.
func (c *CatalogClient) Call(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	req, err := encodeStruct(in)
	if err != nil {
		return err
	}
	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+CatalogServiceName+"/"+method, req, resp, opts...); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decodeStruct(resp, out)
}
