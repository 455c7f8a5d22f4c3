// Package battleserver exposes live battles over gRPC.
package battleserver

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/idlequest/internal/game/battle"
	"github.com/cory-johannsen/idlequest/internal/game/session"
)

// Server implements BattleServiceServer on top of a session.Manager.
type Server struct {
	sessions *session.Manager
	logger   *zap.Logger
}

var _ BattleServiceServer = (*Server)(nil)

// NewServer creates a Server.
//
// Precondition: sessions and logger must be non-nil.
func NewServer(sessions *session.Manager, logger *zap.Logger) *Server {
	if sessions == nil || logger == nil {
		panic("battleserver.NewServer: sessions and logger must not be nil")
	}
	return &Server{sessions: sessions, logger: logger}
}

// StartBattle generates an encounter and begins a battle.
func (s *Server) StartBattle(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req StartBattleRequest
	if err := decode(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	v, err := s.sessions.Start(ctx, req.Player, req.Encounter)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.reply(v, v.State.History, nil)
}

// SubmitAction resolves one player action.
func (s *Server) SubmitAction(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ActionRequest
	if err := decode(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	a, err := battle.ParseAction(req.Action, req.ID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	v, evs, err := s.sessions.Act(ctx, req.BattleID, a)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.reply(v, evs, nil)
}

// SkipBattle fast-forwards a battle. Hitting the resolution bound is not a
// call failure: the partial view is returned with its Error set.
func (s *Server) SkipBattle(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var ref BattleRef
	if err := decode(in, &ref); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	v, evs, err := s.sessions.Skip(ctx, ref.BattleID)
	if err != nil && !errors.Is(err, battle.ErrRunawayBattle) {
		return nil, toStatus(err)
	}
	return s.reply(v, evs, err)
}

// FinishBattle computes the rewards of an ended battle and closes it.
func (s *Server) FinishBattle(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var ref BattleRef
	if err := decode(in, &ref); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	report, err := s.sessions.Finish(ctx, ref.BattleID)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.encode(FinishResponse{BattleID: ref.BattleID, Report: report})
}

// AbandonBattle drops a battle without rewards.
func (s *Server) AbandonBattle(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var ref BattleRef
	if err := decode(in, &ref); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.sessions.Abandon(ctx, ref.BattleID); err != nil {
		return nil, toStatus(err)
	}
	return s.encode(ref)
}

// GetBattle returns the current view of a battle with no new events.
func (s *Server) GetBattle(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var ref BattleRef
	if err := decode(in, &ref); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	v, err := s.sessions.Get(ctx, ref.BattleID)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.reply(v, nil, nil)
}

// WatchBattle streams every event batch of a battle until it finishes, is
// abandoned, or the client goes away. The first message carries no events and
// confirms the subscription.
func (s *Server) WatchBattle(in *structpb.Struct, stream BattleService_WatchBattleServer) error {
	var ref BattleRef
	if err := decode(in, &ref); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	ctx := stream.Context()
	evCh, cancel, err := s.sessions.Watch(ctx, ref.BattleID)
	if err != nil {
		return toStatus(err)
	}
	defer cancel()

	ack, err := s.encode(EventBatch{BattleID: ref.BattleID, Events: []battle.Event{}})
	if err != nil {
		return err
	}
	if err := stream.Send(ack); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case evs, ok := <-evCh:
			if !ok {
				return nil
			}
			msg, err := s.encode(EventBatch{BattleID: ref.BattleID, Events: evs})
			if err != nil {
				return err
			}
			if err := stream.Send(msg); err != nil {
				s.logger.Debug("watch stream send failed",
					zap.String("battle_id", ref.BattleID),
					zap.Error(err),
				)
				return err
			}
		}
	}
}

func (s *Server) reply(v session.View, evs []battle.Event, cause error) (*structpb.Struct, error) {
	if evs == nil {
		evs = []battle.Event{}
	}
	out := BattleView{
		BattleID:  v.ID,
		Seed:      strconv.FormatInt(v.Seed, 10),
		Encounter: v.Request,
		State:     v.State,
		Events:    evs,
	}
	if cause != nil {
		out.Error = cause.Error()
	}
	return s.encode(out)
}

func (s *Server) encode(v any) (*structpb.Struct, error) {
	msg, err := encode(v)
	if err != nil {
		s.logger.Error("encoding reply", zap.Error(err))
		return nil, status.Error(codes.Internal, err.Error())
	}
	return msg, nil
}

// toStatus maps engine and session errors to gRPC status codes.
func toStatus(err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, session.ErrUnknownBattle):
		code = codes.NotFound
	case errors.Is(err, battle.ErrRunawayBattle):
		code = codes.Aborted
	case errors.Is(err, battle.ErrSkillUnavailable),
		errors.Is(err, battle.ErrInsufficientResource),
		errors.Is(err, battle.ErrItemUnavailable),
		errors.Is(err, battle.ErrInvalidActionForState):
		code = codes.FailedPrecondition
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}
