package dispatch

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backkem/dcp/pkg/block"
	"github.com/backkem/dcp/pkg/identity"
	"github.com/backkem/dcp/pkg/pdu"
	"github.com/backkem/dcp/pkg/signal"
)

var (
	deviceMAC     = net.HardwareAddr{0x1e, 0x30, 0x6c, 0xa2, 0x45, 0x5e}
	controllerMAC = net.HardwareAddr{0xc8, 0x5b, 0x76, 0xe6, 0x89, 0xdf}
	otherMAC      = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
)

type leds struct{ on, off int }

func (l *leds) LEDOn()  { l.on++ }
func (l *leds) LEDOff() { l.off++ }

type fixture struct {
	d      *Dispatcher
	state  *identity.State
	signal *signal.Controller
	leds   *leds
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	state, err := identity.New(identity.Config{
		MAC:     deviceMAC,
		Factory: identity.Identity{StationName: "factory-name", HelloEnabled: true},
		Storage: identity.NewMemoryStorage(),
	})
	require.NoError(t, err)

	l := &leds{}
	sig := signal.New(signal.Config{Indicator: l})
	d, err := New(Config{State: state, Signal: sig})
	require.NoError(t, err)
	return &fixture{d: d, state: state, signal: sig, leds: l}
}

func statusCodes(t *testing.T, f *pdu.Frame) []block.ErrorCode {
	t.Helper()
	codes := make([]block.ErrorCode, len(f.Blocks))
	for i, b := range f.Blocks {
		_, code, ok := b.Status()
		require.True(t, ok, "block %d is not a status block", i)
		codes[i] = code
	}
	return codes
}

func findBlock(f *pdu.Frame, k block.Key) (pdu.Block, bool) {
	for _, b := range f.Blocks {
		if b.Key == k {
			return b, true
		}
	}
	return pdu.Block{}, false
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrStateRequired)

	fx := newFixture(t)
	_, err = New(Config{State: fx.state})
	assert.ErrorIs(t, err, ErrSignalRequired)
}

func TestGetStationName(t *testing.T) {
	fx := newFixture(t)

	req := pdu.NewGetRequest(deviceMAC, controllerMAC, 5, block.KeyNameOfStation)
	out := fx.d.Handle(req, 0)

	require.Equal(t, KindRespond, out.Kind)
	assert.True(t, out.Announce)
	resp := out.Response
	assert.Equal(t, pdu.FrameIDGetSet, resp.FrameID)
	assert.Equal(t, pdu.ServiceTypeSuccess, resp.Header.ServiceType)
	assert.Equal(t, uint32(5), resp.Header.Xid)
	assert.Equal(t, controllerMAC, resp.Destination)

	require.Len(t, resp.Blocks, 1)
	info, value, ok := resp.Blocks[0].SplitPrefix()
	require.True(t, ok)
	assert.Equal(t, uint16(0), info)
	assert.Equal(t, "factory-name", string(value))
	assert.Zero(t, fx.leds.on+fx.leds.off, "Get must not touch the LED")
}

func TestGetMixedKeys(t *testing.T) {
	fx := newFixture(t)

	req := pdu.NewGetRequest(deviceMAC, controllerMAC, 1,
		block.KeyNameOfStation,
		block.Key{Option: block.OptionDeviceProperties, Suboption: 0x42},
		block.Key{Option: 0x09, Suboption: 0x01},
		block.KeySignal,
	)
	out := fx.d.Handle(req, 0)
	require.Equal(t, KindRespond, out.Kind)
	require.Len(t, out.Response.Blocks, 4)

	assert.Equal(t, block.KeyNameOfStation, out.Response.Blocks[0].Key)
	for i, want := range []block.ErrorCode{
		block.ErrorSuboptionUnsupported,
		block.ErrorOptionUnsupported,
		block.ErrorSetNotPossible,
	} {
		_, code, ok := out.Response.Blocks[i+1].Status()
		require.True(t, ok)
		assert.Equal(t, want, code)
	}
}

func TestGetAllExpands(t *testing.T) {
	fx := newFixture(t)

	out := fx.d.Handle(pdu.NewGetRequest(deviceMAC, controllerMAC, 1, block.KeyAll), 0)
	require.Equal(t, KindRespond, out.Kind)
	assert.Len(t, out.Response.Blocks, len(block.Readable()))

	_, ok := findBlock(out.Response, block.KeyMACAddress)
	assert.True(t, ok)
}

func TestGetIsIdempotent(t *testing.T) {
	fx := newFixture(t)
	req := pdu.NewGetRequest(deviceMAC, controllerMAC, 1, block.KeyAll)

	first := fx.d.Handle(req, 0).Response.Encode()
	second := fx.d.Handle(req, time.Second).Response.Encode()
	assert.Equal(t, first, second)
}

func TestIdentifyMulticast(t *testing.T) {
	fx := newFixture(t)

	req := pdu.NewIdentifyRequest(controllerMAC, 2, 1,
		pdu.NewFilterBlock(block.KeyNameOfStation, []byte("factory-name")))
	out := fx.d.Handle(req, 0)

	require.Equal(t, KindDefer, out.Kind)
	assert.Equal(t, uint16(1), out.DelayFactor)
	assert.Equal(t, uint32(2), out.Xid)
	assert.Equal(t, controllerMAC, out.Peer)
	assert.False(t, out.Announce)

	resp := out.Build()
	assert.Equal(t, pdu.FrameIDIdentifyResponse, resp.FrameID)
	assert.Equal(t, pdu.ServiceIdentify, resp.Header.ServiceID)
	assert.Equal(t, controllerMAC, resp.Destination)

	_, ok := findBlock(resp, block.KeyMACAddress)
	assert.False(t, ok, "MAC is carried in the frame source")
	b, ok := findBlock(resp, block.KeyNameOfStation)
	require.True(t, ok)
	assert.Equal(t, "factory-name", string(b.Data[2:]))
}

func TestIdentifyBuildReflectsLaterChanges(t *testing.T) {
	fx := newFixture(t)

	out := fx.d.Handle(pdu.NewIdentifyRequest(controllerMAC, 2, 100), 0)
	require.Equal(t, KindDefer, out.Kind)

	require.NoError(t, fx.state.WriteField(block.KeyNameOfStation, []byte("renamed"), false))

	b, ok := findBlock(out.Build(), block.KeyNameOfStation)
	require.True(t, ok)
	assert.Equal(t, "renamed", string(b.Data[2:]))
}

func TestIdentifyFilters(t *testing.T) {
	tests := []struct {
		name    string
		filters []pdu.Block
		want    Kind
	}{
		{"no filter", nil, KindDefer},
		{"all selector", []pdu.Block{{Key: block.KeyAll}}, KindDefer},
		{"name match", []pdu.Block{pdu.NewFilterBlock(block.KeyNameOfStation, []byte("factory-name"))}, KindDefer},
		{"name mismatch", []pdu.Block{pdu.NewFilterBlock(block.KeyNameOfStation, []byte("other"))}, KindDrop},
		{"device id match", []pdu.Block{pdu.NewFilterBlock(block.KeyDeviceID, []byte{0x04, 0x93, 0x00, 0x02})}, KindDefer},
		{"and combined mismatch", []pdu.Block{
			pdu.NewFilterBlock(block.KeyNameOfStation, []byte("factory-name")),
			pdu.NewFilterBlock(block.KeyDeviceID, []byte{0x00, 0x01, 0x00, 0x01}),
		}, KindDrop},
		{"unknown filter", []pdu.Block{pdu.NewFilterBlock(block.Key{Option: 0x09, Suboption: 0x09}, nil)}, KindDrop},
		{"non filterable key", []pdu.Block{pdu.NewFilterBlock(block.KeyDeviceOptions, nil)}, KindDrop},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fx := newFixture(t)
			req := pdu.NewIdentifyRequest(controllerMAC, 1, 1, tc.filters...)
			if tc.filters == nil {
				req.Blocks = nil
			}
			out := fx.d.Handle(req, 0)
			assert.Equal(t, tc.want, out.Kind)
			if tc.want == KindDrop {
				assert.Equal(t, ReasonFilterMismatch, out.Reason)
			}
		})
	}
}

func TestIdentifyUnicastRespondsImmediately(t *testing.T) {
	fx := newFixture(t)
	req := pdu.NewIdentifyRequest(controllerMAC, 3, 500)
	req.Destination = deviceMAC

	out := fx.d.Handle(req, 0)
	require.Equal(t, KindRespond, out.Kind)
	assert.Equal(t, pdu.FrameIDIdentifyResponse, out.Response.FrameID)
}

func TestDropRules(t *testing.T) {
	fx := newFixture(t)

	notForUs := pdu.NewGetRequest(otherMAC, controllerMAC, 1, block.KeyNameOfStation)
	multicastGet := pdu.NewGetRequest(pdu.Broadcast, controllerMAC, 1, block.KeyNameOfStation)
	foreignHello := pdu.NewHello(otherMAC, 1, nil)
	foreignHello.Destination = pdu.Broadcast
	identResp := pdu.NewResponse(pdu.NewIdentifyRequest(deviceMAC, 1, 1), otherMAC, pdu.ServiceTypeSuccess, nil)
	getResp := pdu.NewResponse(pdu.NewGetRequest(otherMAC, deviceMAC, 1), otherMAC, pdu.ServiceTypeSuccess, nil)
	unsupportedResp := pdu.NewResponse(pdu.NewGetRequest(otherMAC, deviceMAC, 1), otherMAC, pdu.ServiceTypeResponseUnsupported, nil)
	badIdentify := pdu.NewIdentifyRequest(controllerMAC, 1, 1)
	badIdentify.Header.ServiceID = pdu.ServiceGet
	identifyAnswer := pdu.NewIdentifyRequest(otherMAC, 1, 1)
	identifyAnswer.Destination = deviceMAC
	identifyAnswer.Header.ServiceType = pdu.ServiceTypeSuccess

	tests := []struct {
		name  string
		frame *pdu.Frame
		want  Reason
	}{
		{"other destination", notForUs, ReasonNotAddressed},
		{"get to broadcast", multicastGet, ReasonNotUnicast},
		{"hello from other station", foreignHello, ReasonForeignHello},
		{"identify response", identResp, ReasonResponse},
		{"get response", getResp, ReasonResponse},
		{"unsupported response", unsupportedResp, ReasonResponse},
		{"multicast identify frame with get service", badIdentify, ReasonBadService},
		{"identify frame with response type", identifyAnswer, ReasonResponse},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := fx.d.Handle(tc.frame, 0)
			assert.Equal(t, KindDrop, out.Kind)
			assert.Equal(t, tc.want, out.Reason)
		})
	}
}

func TestUnsupportedService(t *testing.T) {
	fx := newFixture(t)

	helloService := pdu.NewGetRequest(deviceMAC, controllerMAC, 9, block.KeyNameOfStation)
	helloService.Header.ServiceID = pdu.ServiceHello

	reservedType := pdu.NewSetRequest(deviceMAC, controllerMAC, 9,
		pdu.NewSetBlock(block.KeyNameOfStation, 0, []byte("ignored")))
	reservedType.Header.ServiceType = 0x02

	highType := pdu.NewGetRequest(deviceMAC, controllerMAC, 9, block.KeyNameOfStation)
	highType.Header.ServiceType = 0x06

	directIdentifyGet := pdu.NewIdentifyRequest(controllerMAC, 9, 1)
	directIdentifyGet.Destination = deviceMAC
	directIdentifyGet.Header.ServiceID = pdu.ServiceGet

	tests := []struct {
		name    string
		frame   *pdu.Frame
		wantID  pdu.FrameID
		service pdu.ServiceID
	}{
		{"unknown service", helloService, pdu.FrameIDGetSet, pdu.ServiceHello},
		{"reserved service type", reservedType, pdu.FrameIDGetSet, pdu.ServiceSet},
		{"service type above response", highType, pdu.FrameIDGetSet, pdu.ServiceGet},
		{"identify frame with get service", directIdentifyGet, pdu.FrameIDIdentifyResponse, pdu.ServiceGet},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := fx.d.Handle(tc.frame, 0)

			require.Equal(t, KindUnsupported, out.Kind)
			assert.Equal(t, tc.wantID, out.Response.FrameID)
			assert.Equal(t, pdu.ServiceTypeResponseUnsupported, out.Response.Header.ServiceType)
			assert.Equal(t, tc.service, out.Response.Header.ServiceID)
			assert.Equal(t, uint32(9), out.Response.Header.Xid)
			assert.Equal(t, controllerMAC, out.Response.Destination)
			assert.Empty(t, out.Response.Blocks)
			assert.False(t, out.Announce)
		})
	}

	// Nothing was applied by the reserved-type Set.
	assert.Equal(t, "factory-name", fx.state.Identity().StationName)
}

func TestSetNameTemporary(t *testing.T) {
	fx := newFixture(t)

	req := pdu.NewSetRequest(deviceMAC, controllerMAC, 3,
		pdu.NewSetBlock(block.KeyNameOfStation, 0, []byte("rt-labs-demo")))
	out := fx.d.Handle(req, 0)

	require.Equal(t, KindRespond, out.Kind)
	assert.True(t, out.Announce)
	assert.Equal(t, []block.ErrorCode{block.ErrorNone}, statusCodes(t, out.Response))
	id := fx.state.Identity()
	assert.Equal(t, "rt-labs-demo", id.StationName)
	assert.True(t, id.NameTemporary)
}

func TestSetIsAtomic(t *testing.T) {
	tests := []struct {
		name   string
		blocks []pdu.Block
		want   []block.ErrorCode
	}{
		{
			"read only block",
			[]pdu.Block{
				pdu.NewSetBlock(block.KeyNameOfStation, 1, []byte("new-name")),
				pdu.NewSetBlock(block.KeyMACAddress, 1, otherMAC),
			},
			[]block.ErrorCode{block.ErrorNone, block.ErrorSetNotPossible},
		},
		{
			"invalid ip",
			[]pdu.Block{
				pdu.NewSetBlock(block.KeyIPParameter, 0, []byte{192, 168, 1, 0, 255, 255, 255, 0, 0, 0, 0, 0}),
				pdu.NewSetBlock(block.KeyNameOfStation, 0, []byte("new-name")),
			},
			[]block.ErrorCode{block.ErrorSuboptionNotSet, block.ErrorNone},
		},
		{
			"invalid name",
			[]pdu.Block{pdu.NewSetBlock(block.KeyNameOfStation, 0, []byte("Not Valid"))},
			[]block.ErrorCode{block.ErrorSuboptionNotSet},
		},
		{
			"unknown option",
			[]pdu.Block{
				pdu.NewSetBlock(block.KeyNameOfStation, 0, []byte("new-name")),
				pdu.NewSetBlock(block.Key{Option: 0x09, Suboption: 0x01}, 0, nil),
			},
			[]block.ErrorCode{block.ErrorNone, block.ErrorOptionUnsupported},
		},
		{
			"missing qualifier",
			[]pdu.Block{{Key: block.KeyNameOfStation, Data: []byte{0x00}}},
			[]block.ErrorCode{block.ErrorSuboptionNotSet},
		},
		{
			"bad reset mode with signal",
			[]pdu.Block{
				pdu.NewSetBlock(block.KeySignal, 0, []byte{0x01, 0x00}),
				pdu.NewSetBlock(block.KeyResetToFactory, 5<<1, nil),
			},
			[]block.ErrorCode{block.ErrorNone, block.ErrorSuboptionNotSet},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fx := newFixture(t)
			before := fx.state.Identity()

			out := fx.d.Handle(pdu.NewSetRequest(deviceMAC, controllerMAC, 1, tc.blocks...), 0)

			require.Equal(t, KindRespond, out.Kind)
			assert.Equal(t, tc.want, statusCodes(t, out.Response))
			assert.False(t, out.Announce)
			assert.False(t, out.Signal)
			assert.Equal(t, before, fx.state.Identity(), "failed Set must change nothing")
			assert.False(t, fx.signal.Active())
			assert.Zero(t, fx.leds.off)
		})
	}
}

func TestSetSignal(t *testing.T) {
	fx := newFixture(t)

	out := fx.d.Handle(pdu.NewSetRequest(deviceMAC, controllerMAC, 5,
		pdu.NewSetBlock(block.KeySignal, 0, nil)), 2*time.Second)

	require.Equal(t, KindRespond, out.Kind)
	assert.True(t, out.Signal)
	assert.Equal(t, []block.ErrorCode{block.ErrorNone}, statusCodes(t, out.Response))
	assert.True(t, fx.signal.Active())
	assert.Equal(t, 1, fx.leds.off)

	deadline, _ := fx.signal.Deadline()
	assert.Equal(t, 2*time.Second+signal.DefaultHalfPeriod, deadline)
}

func TestSetSignalZeroValue(t *testing.T) {
	fx := newFixture(t)

	out := fx.d.Handle(pdu.NewSetRequest(deviceMAC, controllerMAC, 5,
		pdu.NewSetBlock(block.KeySignal, 0, []byte{0x00, 0x00})), 0)

	assert.Equal(t, []block.ErrorCode{block.ErrorNone}, statusCodes(t, out.Response))
	assert.False(t, out.Signal)
	assert.False(t, fx.signal.Active())
}

func TestSetFactoryReset(t *testing.T) {
	fx := newFixture(t)

	fx.d.Handle(pdu.NewSetRequest(deviceMAC, controllerMAC, 1,
		pdu.NewSetBlock(block.KeyNameOfStation, block.QualifierPermanent, []byte("persisted"))), 0)
	require.Equal(t, "persisted", fx.state.Identity().StationName)

	out := fx.d.Handle(pdu.NewSetRequest(deviceMAC, controllerMAC, 2,
		pdu.NewSetBlock(block.KeyFactoryReset, 0, nil)), 0)
	assert.Equal(t, []block.ErrorCode{block.ErrorNone}, statusCodes(t, out.Response))

	get := fx.d.Handle(pdu.NewGetRequest(deviceMAC, controllerMAC, 3, block.KeyNameOfStation), 0)
	_, value, ok := get.Response.Blocks[0].SplitPrefix()
	require.True(t, ok)
	assert.Equal(t, "factory-name", string(value))
}

func TestSetWithTransactionBlocks(t *testing.T) {
	fx := newFixture(t)

	out := fx.d.Handle(pdu.NewSetRequest(deviceMAC, controllerMAC, 4,
		pdu.NewSetBlock(block.KeyStartTransaction, 0, nil),
		pdu.NewSetBlock(block.KeyIPParameter, 0, []byte{192, 168, 1, 171, 255, 255, 255, 0, 192, 168, 1, 1}),
		pdu.NewSetBlock(block.KeyEndTransaction, 0, nil),
	), 0)

	assert.Equal(t, []block.ErrorCode{block.ErrorNone, block.ErrorNone, block.ErrorNone}, statusCodes(t, out.Response))
	assert.Equal(t, "192.168.1.171", fx.state.Identity().IP.Address.String())
	assert.Equal(t, block.InfoIPSet, fx.state.Info(block.KeyIPParameter))
}

func TestHelloFrame(t *testing.T) {
	fx := newFixture(t)

	f := fx.d.HelloFrame(0x1234)
	assert.Equal(t, pdu.FrameIDHello, f.FrameID)
	assert.Equal(t, pdu.HelloMulticast, f.Destination)
	assert.Equal(t, deviceMAC, f.Source)
	assert.Equal(t, pdu.ServiceHello, f.Header.ServiceID)

	b, ok := findBlock(f, block.KeyDeviceInitiative)
	require.True(t, ok)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x01}, b.Data)

	decoded, err := pdu.Decode(f.Encode())
	require.NoError(t, err)
	assert.Len(t, decoded.Blocks, len(f.Blocks))
}

func TestResponseBuilderBounds(t *testing.T) {
	var r responseBuilder
	big := pdu.Block{Key: block.KeyDeviceVendor, Data: make([]byte, 1000)}
	r.add(big)
	r.add(big)
	assert.Len(t, r.blocks, 1)
	assert.Equal(t, 1, r.truncated)
	assert.LessOrEqual(t, r.size, pdu.MaxDataLength)
}
