//go:build linux && (amd64 || arm64)

package v4l2

import "unsafe"

// Kernel ABI checks. [0]struct{} = [actual - expected]struct{} only
// compiles when actual == expected.
var (
	_ [0]struct{} = [unsafe.Sizeof(v4l2Capability{}) - 104]struct{}{}
	_ [0]struct{} = [unsafe.Sizeof(v4l2PlanePixFormat{}) - 20]struct{}{}
	_ [0]struct{} = [unsafe.Sizeof(v4l2PixFormatMplane{}) - 192]struct{}{}
	_ [0]struct{} = [unsafe.Sizeof(v4l2Format{}) - 208]struct{}{}
	_ [0]struct{} = [unsafe.Sizeof(v4l2RequestBuffers{}) - 20]struct{}{}
	_ [0]struct{} = [unsafe.Sizeof(v4l2Plane{}) - 64]struct{}{}
	_ [0]struct{} = [unsafe.Sizeof(v4l2Buffer{}) - 88]struct{}{}
	_ [0]struct{} = [unsafe.Sizeof(v4l2EventSubscription{}) - 32]struct{}{}
	_ [0]struct{} = [unsafe.Sizeof(v4l2Event{}) - 136]struct{}{}

	_ [0]struct{} = [unsafe.Offsetof(v4l2PixFormatMplane{}.numPlanes) - 180]struct{}{}
	_ [0]struct{} = [unsafe.Offsetof(v4l2Buffer{}.timestamp) - 24]struct{}{}
	_ [0]struct{} = [unsafe.Offsetof(v4l2Buffer{}.m) - 64]struct{}{}
	_ [0]struct{} = [unsafe.Offsetof(v4l2Event{}.u) - 8]struct{}{}
)

// _IOC encoding.
const (
	iocWrite = 1
	iocRead  = 2

	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30
)

// IOCTL numbers for 64-bit architectures.
const (
	vidiocQuerycap         = iocRead<<iocDirShift | uintptr(unsafe.Sizeof(v4l2Capability{}))<<iocSizeShift | 'V'<<iocTypeShift | 0
	vidiocGFmt             = (iocRead|iocWrite)<<iocDirShift | uintptr(unsafe.Sizeof(v4l2Format{}))<<iocSizeShift | 'V'<<iocTypeShift | 4
	vidiocSFmt             = (iocRead|iocWrite)<<iocDirShift | uintptr(unsafe.Sizeof(v4l2Format{}))<<iocSizeShift | 'V'<<iocTypeShift | 5
	vidiocReqbufs          = (iocRead|iocWrite)<<iocDirShift | uintptr(unsafe.Sizeof(v4l2RequestBuffers{}))<<iocSizeShift | 'V'<<iocTypeShift | 8
	vidiocQuerybuf         = (iocRead|iocWrite)<<iocDirShift | uintptr(unsafe.Sizeof(v4l2Buffer{}))<<iocSizeShift | 'V'<<iocTypeShift | 9
	vidiocQbuf             = (iocRead|iocWrite)<<iocDirShift | uintptr(unsafe.Sizeof(v4l2Buffer{}))<<iocSizeShift | 'V'<<iocTypeShift | 15
	vidiocDqbuf            = (iocRead|iocWrite)<<iocDirShift | uintptr(unsafe.Sizeof(v4l2Buffer{}))<<iocSizeShift | 'V'<<iocTypeShift | 17
	vidiocStreamon         = iocWrite<<iocDirShift | 4<<iocSizeShift | 'V'<<iocTypeShift | 18
	vidiocStreamoff        = iocWrite<<iocDirShift | 4<<iocSizeShift | 'V'<<iocTypeShift | 19
	vidiocDqevent          = iocRead<<iocDirShift | uintptr(unsafe.Sizeof(v4l2Event{}))<<iocSizeShift | 'V'<<iocTypeShift | 89
	vidiocSubscribeEvent   = iocWrite<<iocDirShift | uintptr(unsafe.Sizeof(v4l2EventSubscription{}))<<iocSizeShift | 'V'<<iocTypeShift | 90
	vidiocUnsubscribeEvent = iocWrite<<iocDirShift | uintptr(unsafe.Sizeof(v4l2EventSubscription{}))<<iocSizeShift | 'V'<<iocTypeShift | 91
)

const (
	bufTypeVideoCaptureMplane = 9
	memoryMmap                = 1
	fieldNone                 = 1
	videoMaxPlanes            = 8

	eventSourceChange = 5

	capDeviceCaps = 0x80000000
)

// v4l2Capability has size 104 bytes.
type v4l2Capability struct {
	driver       [16]byte
	card         [32]byte
	busInfo      [32]byte
	version      uint32
	capabilities uint32
	deviceCaps   uint32
	reserved     [3]uint32
}

// v4l2PlanePixFormat has size 20 bytes (packed in the kernel).
type v4l2PlanePixFormat struct {
	sizeimage    uint32
	bytesperline uint32
	reserved     [6]uint16
}

// v4l2PixFormatMplane has size 192 bytes (packed in the kernel).
type v4l2PixFormatMplane struct {
	width        uint32
	height       uint32
	pixelformat  uint32
	field        uint32
	colorspace   uint32
	planeFmt     [videoMaxPlanes]v4l2PlanePixFormat
	numPlanes    uint8
	flags        uint8
	ycbcrEnc     uint8
	quantization uint8
	xferFunc     uint8
	reserved     [7]uint8
}

// v4l2Format has size 208 bytes: the union starts at offset 8.
type v4l2Format struct {
	typ uint32
	_   [4]byte
	fmt [200]byte
}

func (f *v4l2Format) pixMP() *v4l2PixFormatMplane {
	return (*v4l2PixFormatMplane)(unsafe.Pointer(&f.fmt[0]))
}

// v4l2RequestBuffers has size 20 bytes.
type v4l2RequestBuffers struct {
	count        uint32
	typ          uint32
	memory       uint32
	capabilities uint32
	flags        uint8
	reserved     [3]uint8
}

// v4l2Plane has size 64 bytes.
type v4l2Plane struct {
	bytesused  uint32
	length     uint32
	memOffset  uint32 // m.mem_offset; the union is 8 bytes wide
	_          uint32
	dataOffset uint32
	reserved   [11]uint32
}

type v4l2Timecode struct {
	typ      uint32
	flags    uint32
	frames   uint8
	seconds  uint8
	minutes  uint8
	hours    uint8
	userbits [4]uint8
}

type timeval struct {
	sec  int64
	usec int64
}

// v4l2Buffer has size 88 bytes. For multi-planar buffers m holds the
// address of a v4l2Plane array and length its element count.
type v4l2Buffer struct {
	index     uint32
	typ       uint32
	bytesused uint32
	flags     uint32
	field     uint32
	_         [4]byte
	timestamp timeval
	timecode  v4l2Timecode
	sequence  uint32
	memory    uint32
	m         unsafe.Pointer // *v4l2Plane for multi-planar buffers
	length    uint32
	reserved2 uint32
	requestFD int32
	_         [4]byte
}

// v4l2EventSubscription has size 32 bytes.
type v4l2EventSubscription struct {
	typ      uint32
	id       uint32
	flags    uint32
	reserved [5]uint32
}

// v4l2Event has size 136 bytes. The union is 8-byte aligned and the
// struct is padded to a multiple of 8.
type v4l2Event struct {
	typ       uint32
	_         [4]byte
	u         [64]byte
	pending   uint32
	sequence  uint32
	timestamp [16]byte
	id        uint32
	reserved  [8]uint32
	_         [4]byte
}
