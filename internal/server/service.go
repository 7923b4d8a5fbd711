package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/fan-ledger/internal/common"
	"github.com/joseph-ayodele/fan-ledger/internal/extract"
	"github.com/joseph-ayodele/fan-ledger/internal/ocr"
	"github.com/joseph-ayodele/fan-ledger/internal/pipeline"
	"github.com/joseph-ayodele/fan-ledger/internal/repository"
	"github.com/joseph-ayodele/fan-ledger/internal/staging"
)

// LedgerServiceName is the fully qualified gRPC service name.
const LedgerServiceName = "fanledger.v1.LedgerService"

// LedgerServer is the admin surface of the daemon. Requests and responses are
// google.protobuf.Struct messages.
type LedgerServer interface {
	Analyze(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Commit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Cancel(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRoster(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddMember(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RenameMember(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteMembers(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type ledgerCall func(LedgerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// LedgerServiceDesc describes LedgerServer for grpc.Server.RegisterService. It mirrors
// proto/fanledger/v1/ledger.proto.
var LedgerServiceDesc = grpc.ServiceDesc{
	ServiceName: LedgerServiceName,
	HandlerType: (*LedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Analyze", Handler: structHandler("Analyze", LedgerServer.Analyze)},
		{MethodName: "Commit", Handler: structHandler("Commit", LedgerServer.Commit)},
		{MethodName: "Cancel", Handler: structHandler("Cancel", LedgerServer.Cancel)},
		{MethodName: "ListRoster", Handler: structHandler("ListRoster", LedgerServer.ListRoster)},
		{MethodName: "AddMember", Handler: structHandler("AddMember", LedgerServer.AddMember)},
		{MethodName: "RenameMember", Handler: structHandler("RenameMember", LedgerServer.RenameMember)},
		{MethodName: "DeleteMembers", Handler: structHandler("DeleteMembers", LedgerServer.DeleteMembers)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "proto/fanledger/v1/ledger.proto",
}

func structHandler(method string, call ledgerCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LedgerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + LedgerServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(LedgerServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// RegisterLedgerServer registers srv on s.
func RegisterLedgerServer(s grpc.ServiceRegistrar, srv LedgerServer) {
	s.RegisterService(&LedgerServiceDesc, srv)
}

// SessionAnalyzer runs screenshots through OCR and extraction into a staged session.
type SessionAnalyzer interface {
	Analyze(ctx context.Context, sources []ocr.Source) (*staging.Session, error)
}

// LedgerCommitter writes reviewed entries into the ledger.
type LedgerCommitter interface {
	Commit(ctx context.Context, entries []extract.Entry) (pipeline.CommitResult, error)
}

// LedgerService implements LedgerServer. A nil analyzer means OCR is not configured;
// Analyze then fails with FailedPrecondition while the rest of the service keeps working.
type LedgerService struct {
	analyzer  SessionAnalyzer
	committer LedgerCommitter
	sessions  *staging.Sessions
	roster    repository.RosterRepository
	logger    *slog.Logger
}

func NewLedgerService(analyzer SessionAnalyzer, committer LedgerCommitter, sessions *staging.Sessions, roster repository.RosterRepository, logger *slog.Logger) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerService{
		analyzer:  analyzer,
		committer: committer,
		sessions:  sessions,
		roster:    roster,
		logger:    logger,
	}
}

// UnaryLogging tags each call with a request ID and logs its outcome.
func UnaryLogging(logger *slog.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		ctx = common.WithRequestID(ctx, uuid.NewString())
		resp, err := handler(ctx, req)
		attrs := []any{
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		}
		l := common.LoggerFrom(ctx, logger)
		if err != nil {
			l.Warn("grpc.request.failed", append(attrs, "error", err)...)
		} else {
			l.Info("grpc.request", attrs...)
		}
		return resp, err
	}
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	return s, nil
}
