package comm

import "fmt"

// MessageID identifies an ANT message.
type MessageID byte

// Message ids defined by the ANT message protocol.
const (
	ChannelResponse         MessageID = 0x40
	UnassignChannel         MessageID = 0x41
	AssignChannel           MessageID = 0x42
	SetChannelPeriod        MessageID = 0x43
	SetChannelSearchTimeout MessageID = 0x44
	SetChannelRFFreq        MessageID = 0x45
	SetNetworkKey           MessageID = 0x46
	ResetSystem             MessageID = 0x4A
	OpenChannel             MessageID = 0x4B
	CloseChannel            MessageID = 0x4C
	RequestMessage          MessageID = 0x4D
	BroadcastData           MessageID = 0x4E
	AcknowledgeData         MessageID = 0x4F
	BurstTransferData       MessageID = 0x50
	SetChannelID            MessageID = 0x51
	ResponseChannelStatus   MessageID = 0x52
	ResponseCapabilities    MessageID = 0x54
	ResponseVersion         MessageID = 0x3E
	ResponseSerialNumber    MessageID = 0x61
	StartupMessage          MessageID = 0x6F

	// ResponseChannelID shares the id with SetChannelID.
	ResponseChannelID = SetChannelID
)

var messageNames = map[MessageID]string{
	ChannelResponse:         "CHANNEL_RESPONSE",
	UnassignChannel:         "UNASSIGN_CHANNEL",
	AssignChannel:           "ASSIGN_CHANNEL",
	SetChannelPeriod:        "SET_CHANNEL_PERIOD",
	SetChannelSearchTimeout: "SET_CHANNEL_SEARCH_TIMEOUT",
	SetChannelRFFreq:        "SET_CHANNEL_RF_FREQ",
	SetNetworkKey:           "SET_NETWORK_KEY",
	ResetSystem:             "RESET_SYSTEM",
	OpenChannel:             "OPEN_CHANNEL",
	CloseChannel:            "CLOSE_CHANNEL",
	RequestMessage:          "REQUEST_MESSAGE",
	BroadcastData:           "BROADCAST_DATA",
	AcknowledgeData:         "ACKNOWLEDGE_DATA",
	BurstTransferData:       "BURST_TRANSFER_DATA",
	SetChannelID:            "CHANNEL_ID",
	ResponseChannelStatus:   "RESPONSE_CHANNEL_STATUS",
	ResponseCapabilities:    "RESPONSE_CAPABILITIES",
	ResponseVersion:         "RESPONSE_VERSION",
	ResponseSerialNumber:    "RESPONSE_SERIAL_NUMBER",
	StartupMessage:          "STARTUP_MESSAGE",
}

// String implements fmt.Stringer.
func (id MessageID) String() string {
	if name, ok := messageNames[id]; ok {
		return name
	}
	return fmt.Sprintf("MSG_0x%02X", byte(id))
}

// ChannelEvent is the code carried in a channel response or event.
type ChannelEvent byte

// Channel events and response codes.
const (
	ResponseNoError             ChannelEvent = 0x00
	EventRxSearchTimeout        ChannelEvent = 0x01
	EventRxFail                 ChannelEvent = 0x02
	EventTx                     ChannelEvent = 0x03
	EventTransferRxFailed       ChannelEvent = 0x04
	EventTransferTxCompleted    ChannelEvent = 0x05
	EventTransferTxFailed       ChannelEvent = 0x06
	EventChannelClosed          ChannelEvent = 0x07
	EventRxFailGoToSearch       ChannelEvent = 0x08
	EventChannelCollision       ChannelEvent = 0x09
	EventTransferTxStart        ChannelEvent = 0x0A
	EventTransferNextDataBlock  ChannelEvent = 0x11
	ChannelInWrongState         ChannelEvent = 0x15
	ChannelNotOpened            ChannelEvent = 0x16
	ChannelIDNotSet             ChannelEvent = 0x18
	CloseAllChannels            ChannelEvent = 0x19
	TransferInProgress          ChannelEvent = 0x1F
	TransferSequenceNumberError ChannelEvent = 0x20
	TransferInError             ChannelEvent = 0x21
	MessageSizeExceedsLimit     ChannelEvent = 0x27
	InvalidMessage              ChannelEvent = 0x28
	InvalidNetworkNumber        ChannelEvent = 0x29
	InvalidListID               ChannelEvent = 0x30
	InvalidScanTxChannel        ChannelEvent = 0x31
	InvalidParameterProvided    ChannelEvent = 0x33
	EventSerialQueueOverflow    ChannelEvent = 0x34
	EventQueueOverflow          ChannelEvent = 0x35
	EncryptNegotiationSuccess   ChannelEvent = 0x38
	EncryptNegotiationFail      ChannelEvent = 0x39
	NVMFullError                ChannelEvent = 0x40
	NVMWriteError               ChannelEvent = 0x41
	USBStringWriteFail          ChannelEvent = 0x70
	MessageSerialErrorID        ChannelEvent = 0xAE
)

var channelEventNames = map[ChannelEvent]string{
	ResponseNoError:             "no error",
	EventRxSearchTimeout:        "channel search timeout",
	EventRxFail:                 "rx fail",
	EventTx:                     "broadcast tx complete",
	EventTransferRxFailed:       "rx transfer fail",
	EventTransferTxCompleted:    "tx complete",
	EventTransferTxFailed:       "tx fail",
	EventChannelClosed:          "channel closed",
	EventRxFailGoToSearch:       "dropped to search mode",
	EventChannelCollision:       "channel collision",
	EventTransferTxStart:        "burst transfer start",
	EventTransferNextDataBlock:  "burst next data block",
	ChannelInWrongState:         "channel in wrong state",
	ChannelNotOpened:            "channel not opened",
	ChannelIDNotSet:             "channel id not set",
	CloseAllChannels:            "all channels closed",
	TransferInProgress:          "transfer in progress",
	TransferSequenceNumberError: "transfer sequence error",
	TransferInError:             "transfer in error",
	MessageSizeExceedsLimit:     "message too large",
	InvalidMessage:              "invalid message",
	InvalidNetworkNumber:        "invalid network number",
	InvalidListID:               "invalid list id",
	InvalidScanTxChannel:        "invalid scanning transmit channel",
	InvalidParameterProvided:    "invalid parameter",
	EventSerialQueueOverflow:    "output serial overflow",
	EventQueueOverflow:          "input serial overflow",
	EncryptNegotiationSuccess:   "encryption negotiation success",
	EncryptNegotiationFail:      "encryption negotiation fail",
	NVMFullError:                "nvm full",
	NVMWriteError:               "nvm write fail",
	USBStringWriteFail:          "usb string write fail",
	MessageSerialErrorID:        "bad usb packet received",
}

// String implements fmt.Stringer.
func (e ChannelEvent) String() string {
	if name, ok := channelEventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("unknown channel event 0x%02X", byte(e))
}
