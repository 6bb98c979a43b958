// Package admin exposes operator RPCs over gRPC. Messages are
// google.protobuf.Struct documents, so the service needs no generated code.
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"vectortube/internal/auth"
	"vectortube/internal/catalog"
	"vectortube/internal/enquiry"
	"vectortube/internal/errs"
)

const ServiceName = "vectortube.admin.v1.CatalogAdmin"

const (
	reconcileMethod     = "/" + ServiceName + "/Reconcile"
	listEnquiriesMethod = "/" + ServiceName + "/ListEnquiries"
)

type Reconciler interface {
	Reconcile(ctx context.Context, opts catalog.ReconcileOptions) (catalog.Report, error)
}

type EnquiryLister interface {
	List(ctx context.Context) ([]enquiry.Enquiry, error)
}

// CatalogAdminServer is the server API for the admin service.
type CatalogAdminServer interface {
	Reconcile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListEnquiries(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type Server struct {
	catalog   Reconciler
	enquiries EnquiryLister
	grace     time.Duration
	log       *zap.Logger
}

var _ CatalogAdminServer = (*Server)(nil)

// NewServer serves reconcile against catalog and listing against enquiries.
// grace applies when a request does not carry grace_seconds.
func NewServer(catalog Reconciler, enquiries EnquiryLister, grace time.Duration, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{catalog: catalog, enquiries: enquiries, grace: grace, log: log.Named("admin")}
}

// Reconcile accepts {"remove": bool, "grace_seconds": number} and returns the
// reconcile report.
func (s *Server) Reconcile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.catalog == nil {
		return nil, status.Error(codes.Unimplemented, "catalog is not configured")
	}

	opts := catalog.ReconcileOptions{Grace: s.grace}
	fields := req.GetFields()
	if v, ok := fields["remove"]; ok {
		b, ok := v.GetKind().(*structpb.Value_BoolValue)
		if !ok {
			return nil, status.Error(codes.InvalidArgument, "remove must be a bool")
		}
		opts.Remove = b.BoolValue
	}
	if v, ok := fields["grace_seconds"]; ok {
		n, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, status.Error(codes.InvalidArgument, "grace_seconds must be a number")
		}
		opts.Grace = time.Duration(n.NumberValue * float64(time.Second))
		if opts.Grace == 0 {
			// zero on the wire means no grace, not the default
			opts.Grace = -1
		}
	}

	report, err := s.catalog.Reconcile(ctx, opts)
	if err != nil && len(report.Errors) == 0 {
		s.log.Error("reconcile failed", zap.Error(err))
		return nil, toStatus(err)
	}
	if err != nil {
		s.log.Warn("reconcile finished with errors", zap.Error(err))
	}
	return toStruct(report)
}

// ListEnquiries returns {"enquiries": [...]}, oldest first.
func (s *Server) ListEnquiries(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.enquiries == nil {
		return nil, status.Error(codes.Unimplemented, "enquiries are not configured")
	}
	list, err := s.enquiries.List(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(struct {
		Enquiries []enquiry.Enquiry `json:"enquiries"`
	}{list})
}

func toStatus(err error) error {
	code := codes.Internal
	switch errs.KindOf(err) {
	case errs.Validation:
		code = codes.InvalidArgument
	case errs.NotFound:
		code = codes.NotFound
	case errs.Unauthorized:
		code = codes.Unauthenticated
	}
	return status.Error(code, errs.DetailOf(err))
}

// toStruct converts a JSON-encodable value into a Struct. Numbers become
// doubles.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return s, nil
}

func fromStruct(s *structpb.Struct, out any) error {
	b, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func reconcileHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogAdminServer).Reconcile(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: reconcileMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CatalogAdminServer).Reconcile(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listEnquiriesHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogAdminServer).ListEnquiries(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listEnquiriesMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CatalogAdminServer).ListEnquiries(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CatalogAdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Reconcile", Handler: reconcileHandler},
		{MethodName: "ListEnquiries", Handler: listEnquiriesHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "vectortube/admin/v1/admin.proto",
}

func RegisterCatalogAdminServer(s grpc.ServiceRegistrar, srv CatalogAdminServer) {
	s.RegisterService(&serviceDesc, srv)
}

// AuthInterceptor rejects calls without a valid bearer token in the
// "authorization" metadata. An empty secret disables the check.
func AuthInterceptor(secret string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if secret == "" {
			return handler(ctx, req)
		}
		md, _ := metadata.FromIncomingContext(ctx)
		values := md.Get("authorization")
		if len(values) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing bearer token")
		}
		token, ok := strings.CutPrefix(values[0], "Bearer ")
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "malformed authorization metadata")
		}
		if _, err := auth.ValidateJWT(token, secret); err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid bearer token")
		}
		return handler(ctx, req)
	}
}
