package protocol

// MaxPayload is the largest payload a single frame may carry. The device
// buffers each incoming frame whole, so the cap is fixed by its frame
// buffer size.
const MaxPayload = 63

// ResetByte is the payload of a peer-initiated reset message.
const ResetByte = 'r'

// Command opcodes, carried in the first payload byte of a command frame.
const (
	// OpRead reads a single byte. Frame: [OpRead addrHi addrLo].
	OpRead = 0x72 // 'r'

	// OpWrite writes a single byte. Frame: [OpWrite addrHi addrLo value].
	OpWrite = 0x77 // 'w'

	// OpDump streams the full 32768-byte contents. Frame: [OpDump].
	OpDump = 0x64 // 'd'

	// OpLoad bulk-writes N bytes starting at address 0.
	// Frame: [OpLoad lenHi lenLo].
	OpLoad = 0x6c // 'l'
)

// Expected total frame lengths per command.
const (
	ReadFrameLen  = 3
	WriteFrameLen = 4
	DumpFrameLen  = 1
	LoadFrameLen  = 3
	ResetFrameLen = 1
)
