package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/hsautopilot/tracker-go/internal/feed"
	"github.com/hsautopilot/tracker-go/internal/game"
)

// SnapshotServiceName is the fully qualified gRPC service name.
const SnapshotServiceName = "hstracker.v1.SnapshotService"

// watcherBuffer is how many snapshots a slow stream may fall behind before
// updates to it are dropped.
const watcherBuffer = 16

// SnapshotServiceServer is the server API of the snapshot service.
type SnapshotServiceServer interface {
	GetSnapshot(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	WatchSnapshots(*emptypb.Empty, grpc.ServerStream) error
}

// SnapshotServer serves snapshots published on a feed bus.
type SnapshotServer struct {
	logger *zap.Logger
	bus    *feed.Bus
	handle int

	mu       sync.Mutex
	watchers map[int]chan game.Snapshot
	nextID   int

	done      chan struct{}
	closeOnce sync.Once
}

// NewSnapshotServer subscribes to bus. Call Close to unsubscribe.
func NewSnapshotServer(bus *feed.Bus, logger *zap.Logger) *SnapshotServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &SnapshotServer{
		logger:   logger,
		bus:      bus,
		watchers: make(map[int]chan game.Snapshot),
		done:     make(chan struct{}),
	}
	s.handle = bus.Subscribe(s.broadcast)
	return s
}

// Close stops receiving snapshots from the bus and ends every open
// WatchSnapshots stream. It is safe to call more than once.
func (s *SnapshotServer) Close() {
	s.closeOnce.Do(func() {
		s.bus.Unsubscribe(s.handle)
		close(s.done)
	})
}

func (s *SnapshotServer) broadcast(snap game.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.watchers {
		select {
		case ch <- snap:
		default:
			s.logger.Debug("dropping snapshot for slow watcher", zap.Int("watcher", id))
		}
	}
}

func (s *SnapshotServer) addWatcher() (int, chan game.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	ch := make(chan game.Snapshot, watcherBuffer)
	s.watchers[id] = ch
	return id, ch
}

func (s *SnapshotServer) removeWatcher(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.watchers, id)
}

// Watchers returns the number of open WatchSnapshots streams.
func (s *SnapshotServer) Watchers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers)
}

// GetSnapshot returns the latest snapshot, or NotFound before the first one.
func (s *SnapshotServer) GetSnapshot(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	snap, ok := s.bus.Latest()
	if !ok {
		return nil, status.Error(codes.NotFound, "no snapshot available yet")
	}
	msg, err := SnapshotToStruct(snap)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode snapshot: %v", err)
	}
	return msg, nil
}

// WatchSnapshots streams the latest snapshot, then every new one until the
// client goes away or the server is closed.
func (s *SnapshotServer) WatchSnapshots(_ *emptypb.Empty, stream grpc.ServerStream) error {
	id, ch := s.addWatcher()
	defer s.removeWatcher(id)

	if snap, ok := s.bus.Latest(); ok {
		if err := sendSnapshot(stream, snap); err != nil {
			return err
		}
	}

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case snap := <-ch:
			if err := sendSnapshot(stream, snap); err != nil {
				return err
			}
		}
	}
}

func sendSnapshot(stream grpc.ServerStream, snap game.Snapshot) error {
	msg, err := SnapshotToStruct(snap)
	if err != nil {
		return status.Errorf(codes.Internal, "encode snapshot: %v", err)
	}
	return stream.SendMsg(msg)
}

// SnapshotToStruct converts a snapshot to its JSON-shaped protobuf form.
func SnapshotToStruct(snap game.Snapshot) (*structpb.Struct, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return structpb.NewStruct(fields)
}

// SnapshotFromStruct is the inverse of SnapshotToStruct.
func SnapshotFromStruct(msg *structpb.Struct) (game.Snapshot, error) {
	var snap game.Snapshot
	raw, err := msg.MarshalJSON()
	if err != nil {
		return snap, fmt.Errorf("marshal struct: %w", err)
	}
	if err := json.Unmarshal(raw, &snap); err != nil {
		return snap, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, nil
}

func getSnapshotHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SnapshotServiceServer).GetSnapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + SnapshotServiceName + "/GetSnapshot",
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SnapshotServiceServer).GetSnapshot(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func watchSnapshotsHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(SnapshotServiceServer).WatchSnapshots(in, stream)
}

var snapshotServiceDesc = grpc.ServiceDesc{
	ServiceName: SnapshotServiceName,
	HandlerType: (*SnapshotServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetSnapshot", Handler: getSnapshotHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "WatchSnapshots", Handler: watchSnapshotsHandler, ServerStreams: true},
	},
	Metadata: "hstracker/v1/snapshot.proto",
}

// RegisterSnapshotServiceServer registers srv on s.
func RegisterSnapshotServiceServer(s grpc.ServiceRegistrar, srv SnapshotServiceServer) {
	s.RegisterService(&snapshotServiceDesc, srv)
}

// SnapshotClient calls a remote snapshot service.
type SnapshotClient struct {
	cc grpc.ClientConnInterface
}

// NewSnapshotClient wraps a client connection.
func NewSnapshotClient(cc grpc.ClientConnInterface) *SnapshotClient {
	return &SnapshotClient{cc: cc}
}

// GetSnapshot fetches the latest snapshot.
func (c *SnapshotClient) GetSnapshot(ctx context.Context, opts ...grpc.CallOption) (game.Snapshot, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+SnapshotServiceName+"/GetSnapshot", new(emptypb.Empty), out, opts...); err != nil {
		return game.Snapshot{}, err
	}
	return SnapshotFromStruct(out)
}

// SnapshotStream receives snapshots from WatchSnapshots.
type SnapshotStream struct {
	stream grpc.ClientStream
}

// Recv blocks for the next snapshot.
func (s *SnapshotStream) Recv() (game.Snapshot, error) {
	msg := new(structpb.Struct)
	if err := s.stream.RecvMsg(msg); err != nil {
		return game.Snapshot{}, err
	}
	return SnapshotFromStruct(msg)
}

// WatchSnapshots opens a snapshot stream; cancel ctx to close it.
func (c *SnapshotClient) WatchSnapshots(ctx context.Context, opts ...grpc.CallOption) (*SnapshotStream, error) {
	stream, err := c.cc.NewStream(ctx, &snapshotServiceDesc.Streams[0], "/"+SnapshotServiceName+"/WatchSnapshots", opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(new(emptypb.Empty)); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &SnapshotStream{stream: stream}, nil
}

// Helper function to extract host from context
func extractHostFromContext(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != net.Addr(nil) {
		if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
			return host
		}
		return p.Addr.String()
	}
	return "unknown"
}
