package battleserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "idlequest.battle.v1.BattleService"

// Full method names.
const (
	StartBattleMethod   = "/" + ServiceName + "/StartBattle"
	SubmitActionMethod  = "/" + ServiceName + "/SubmitAction"
	SkipBattleMethod    = "/" + ServiceName + "/SkipBattle"
	FinishBattleMethod  = "/" + ServiceName + "/FinishBattle"
	AbandonBattleMethod = "/" + ServiceName + "/AbandonBattle"
	GetBattleMethod     = "/" + ServiceName + "/GetBattle"
	WatchBattleMethod   = "/" + ServiceName + "/WatchBattle"
)

// BattleServiceServer is the server API for the battle service. Every
// message is a google.protobuf.Struct carrying one of the JSON payloads in
// wire.go.
type BattleServiceServer interface {
	StartBattle(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitAction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SkipBattle(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FinishBattle(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AbandonBattle(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetBattle(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchBattle(*structpb.Struct, BattleService_WatchBattleServer) error
}

// BattleService_WatchBattleServer is the server side of the WatchBattle stream.
type BattleService_WatchBattleServer interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type watchBattleServer struct {
	grpc.ServerStream
}

func (x *watchBattleServer) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}

// RegisterBattleServiceServer registers srv with s.
func RegisterBattleServiceServer(s grpc.ServiceRegistrar, srv BattleServiceServer) {
	s.RegisterService(&BattleService_ServiceDesc, srv)
}

type unaryCall func(BattleServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BattleServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BattleServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchBattleHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(BattleServiceServer).WatchBattle(in, &watchBattleServer{stream})
}

// BattleService_ServiceDesc is the grpc.ServiceDesc for the battle service.
var BattleService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BattleServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "StartBattle", Handler: unaryHandler(StartBattleMethod, BattleServiceServer.StartBattle)},
		{MethodName: "SubmitAction", Handler: unaryHandler(SubmitActionMethod, BattleServiceServer.SubmitAction)},
		{MethodName: "SkipBattle", Handler: unaryHandler(SkipBattleMethod, BattleServiceServer.SkipBattle)},
		{MethodName: "FinishBattle", Handler: unaryHandler(FinishBattleMethod, BattleServiceServer.FinishBattle)},
		{MethodName: "AbandonBattle", Handler: unaryHandler(AbandonBattleMethod, BattleServiceServer.AbandonBattle)},
		{MethodName: "GetBattle", Handler: unaryHandler(GetBattleMethod, BattleServiceServer.GetBattle)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "WatchBattle", Handler: watchBattleHandler, ServerStreams: true},
	},
}
