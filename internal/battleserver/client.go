package battleserver

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/idlequest/internal/game/battle"
	"github.com/cory-johannsen/idlequest/internal/game/session"
)

// Client is a typed battle service client. Its battle methods mirror
// session.Manager so either can drive a battle front end.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a client connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, req any, resp any) error {
	in, err := encode(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out); err != nil {
		return fromStatus(err)
	}
	return decode(out, resp)
}

func (c *Client) view(ctx context.Context, method string, req any) (session.View, []battle.Event, error) {
	var bv BattleView
	if err := c.invoke(ctx, method, req, &bv); err != nil {
		return session.View{}, nil, err
	}
	seed, err := strconv.ParseInt(bv.Seed, 10, 64)
	if err != nil {
		return session.View{}, nil, fmt.Errorf("battle %s: bad seed %q: %w", bv.BattleID, bv.Seed, err)
	}
	v := session.View{ID: bv.BattleID, Seed: seed, Request: bv.Encounter, State: bv.State}
	if bv.Error != "" {
		return v, bv.Events, &battle.Error{Kind: battle.ErrRunawayBattle, Detail: bv.Error}
	}
	return v, bv.Events, nil
}

// Start begins a battle on the server.
func (c *Client) Start(ctx context.Context, profile battle.PlayerProfile, req battle.EncounterRequest) (session.View, error) {
	v, _, err := c.view(ctx, StartBattleMethod, StartBattleRequest{Player: profile, Encounter: req})
	return v, err
}

// Act submits one player action.
func (c *Client) Act(ctx context.Context, id string, a battle.Action) (session.View, []battle.Event, error) {
	if a == nil {
		return session.View{}, nil, &battle.Error{Kind: battle.ErrInvalidActionForState, Detail: "no action given"}
	}
	return c.view(ctx, SubmitActionMethod, ActionRequest{BattleID: id, Action: string(a.Kind()), ID: battle.ActionID(a)})
}

// Skip fast-forwards a battle to its end.
func (c *Client) Skip(ctx context.Context, id string) (session.View, []battle.Event, error) {
	return c.view(ctx, SkipBattleMethod, BattleRef{BattleID: id})
}

// Get returns the current view of a battle.
func (c *Client) Get(ctx context.Context, id string) (session.View, error) {
	v, _, err := c.view(ctx, GetBattleMethod, BattleRef{BattleID: id})
	return v, err
}

// Finish computes the rewards of an ended battle.
func (c *Client) Finish(ctx context.Context, id string) (battle.Report, error) {
	var resp FinishResponse
	if err := c.invoke(ctx, FinishBattleMethod, BattleRef{BattleID: id}, &resp); err != nil {
		return battle.Report{}, err
	}
	return resp.Report, nil
}

// Abandon drops a battle without rewards.
func (c *Client) Abandon(ctx context.Context, id string) error {
	var ref BattleRef
	return c.invoke(ctx, AbandonBattleMethod, BattleRef{BattleID: id}, &ref)
}

// EventStream receives the event batches of a watched battle.
type EventStream struct {
	stream grpc.ClientStream
}

// Recv blocks for the next batch. It returns io.EOF once the battle ends.
func (s *EventStream) Recv() ([]battle.Event, error) {
	msg := new(structpb.Struct)
	if err := s.stream.RecvMsg(msg); err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, fromStatus(err)
	}
	var batch EventBatch
	if err := decode(msg, &batch); err != nil {
		return nil, err
	}
	return batch.Events, nil
}

// Watch subscribes to a battle's events and returns once the server has
// confirmed the subscription. Cancel ctx to stop watching.
func (c *Client) Watch(ctx context.Context, id string) (*EventStream, error) {
	in, err := encode(BattleRef{BattleID: id})
	if err != nil {
		return nil, err
	}
	stream, err := c.cc.NewStream(ctx, &BattleService_ServiceDesc.Streams[0], WatchBattleMethod)
	if err != nil {
		return nil, fromStatus(err)
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, fromStatus(err)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, fromStatus(err)
	}
	es := &EventStream{stream: stream}
	if _, err := es.Recv(); err != nil {
		return nil, err
	}
	return es, nil
}

// rejectionKinds are the engine errors carried by codes.FailedPrecondition.
// Engine error messages start with the kind's text.
var rejectionKinds = []error{
	battle.ErrSkillUnavailable,
	battle.ErrInsufficientResource,
	battle.ErrItemUnavailable,
	battle.ErrInvalidActionForState,
}

// fromStatus restores the sentinel errors behind well-known status codes.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return fmt.Errorf("%w: %s", session.ErrUnknownBattle, st.Message())
	case codes.FailedPrecondition:
		kind := battle.ErrInvalidActionForState
		for _, k := range rejectionKinds {
			if strings.HasPrefix(st.Message(), k.Error()) {
				kind = k
				break
			}
		}
		return &battle.Error{Kind: kind, Detail: st.Message(), Err: err}
	case codes.Aborted:
		return &battle.Error{Kind: battle.ErrRunawayBattle, Detail: st.Message(), Err: err}
	}
	return err
}
