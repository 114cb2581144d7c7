//go:build linux

package hw

import (
	"errors"
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ptrOf turns a Go pointer into the uintptr ioctl's raw Syscall wants,
// matching the unsafe.Sizeof/unsafe.Pointer idiom Daedaluz-goserial uses
// for its termios ioctls.
func ptrOf(p any) uintptr {
	switch v := p.(type) {
	case *int32:
		return uintptr(unsafe.Pointer(v))
	case *Gains:
		return uintptr(unsafe.Pointer(v))
	default:
		return 0
	}
}

type bufInfoIoctl struct {
	Policy     int32
	NumBuffers int32
	BufferSize int32
}

// Linux T1/E1 CAS signaling ioctl numbers. The request codes themselves are
// driver-specific (these follow the DAHDI/Zaptel numbering convention); the
// non-blocking open + per-fd ioctl-struct idiom is lifted from
// Daedaluz-goserial's ioctl_linux.go/port_linux.go, generalized from a
// termios ioctl set to a CAS signaling one.
const (
	ioctlSpecifyChannel = 0x40045A07
	ioctlGetParams      = 0xC02C5A07
	ioctlSetParams      = 0x402C5A07
	ioctlGetBufInfo     = 0xC0105A08
	ioctlSetBufInfo     = 0x80105A09
	ioctlGetGains       = 0xC1005A0A
	ioctlSetGains       = 0x81005A0B
	ioctlGetTxBits      = 0xC0045A0C
	ioctlSetTxBits      = 0x80045A0D
	ioctlGetRxBits      = 0xC0045A0E
	ioctlGetEvent       = 0xC0045A0F
)

const sigCAS = 4

// LinuxDevice drives one CAS timeslot through a DAHDI/Zaptel-style character
// device node, opened non-blocking per spec.md §6 ("open device with
// non-blocking, read-write mode; specify channel ioctl before use").
type LinuxDevice struct {
	fd        int
	number    int
	fdCreated bool
}

// OpenLinuxDevice opens path (e.g. "/dev/dahdi/chan/042") non-blocking and
// issues the specify-channel ioctl.
func OpenLinuxDevice(path string, channel int) (*LinuxDevice, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("hw: open %s: %w", path, err)
	}
	d := &LinuxDevice{fd: fd, number: channel, fdCreated: true}
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), ioctlSpecifyChannel, uintptr(channel)); errno != 0 {
		unix.Close(fd)
		return nil, fmt.Errorf("hw: specify channel %d: %w", channel, errno)
	}
	return d, nil
}

// WrapLinuxDevice adopts an already-open, borrowed fd (fd_created=false in
// spec.md §5's terms: "Hardware descriptors are owned by the channel if it
// opened them, otherwise borrowed").
func WrapLinuxDevice(fd int, channel int) *LinuxDevice {
	return &LinuxDevice{fd: fd, number: channel, fdCreated: false}
}

func (d *LinuxDevice) ChannelNumber() int { return d.number }

// Configure sets CAS signaling, the buffer policy and the gain table. It
// issues no codec or echo-cancellation ioctl: neither A-law selection nor
// echo-cancel disabling is done here.
func (d *LinuxDevice) Configure(bufs BufferInfo, gains Gains) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), ioctlSetParams, uintptr(sigCAS)); errno != 0 {
		return fmt.Errorf("hw: set CAS signaling: %w", errno)
	}
	bi := bufInfoIoctl{int32(bufs.Policy), int32(bufs.NumBuffers), int32(bufs.BufferSize)}
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), ioctlSetBufInfo, uintptr(unsafe.Pointer(&bi))); errno != 0 {
		return fmt.Errorf("hw: set buffer info: %w", errno)
	}
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), ioctlSetGains, uintptr(ptrOf(&gains))); errno != 0 {
		return fmt.Errorf("hw: set gains: %w", errno)
	}
	return nil
}

func (d *LinuxDevice) ReadPCM(buf []byte) (int, error) {
	n, err := unix.Read(d.fd, buf)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

func (d *LinuxDevice) WritePCM(buf []byte) (int, error) {
	n, err := unix.Write(d.fd, buf)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) {
			return n, nil
		}
		return n, err
	}
	return n, nil
}

func (d *LinuxDevice) GetTxABCD() Bits {
	var v int32
	unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), ioctlGetTxBits, uintptr(ptrOf(&v)))
	return Bits(v & 0xF)
}

func (d *LinuxDevice) SetTxABCD(b Bits) error {
	v := int32(b & 0xF)
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), ioctlSetTxBits, uintptr(ptrOf(&v))); errno != 0 {
		return fmt.Errorf("hw: set tx abcd: %w", errno)
	}
	return nil
}

func (d *LinuxDevice) GetRxABCD() Bits {
	var v int32
	unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), ioctlGetRxBits, uintptr(ptrOf(&v)))
	return Bits(v & 0xF)
}

// Multiplex uses unix.Poll, the non-blocking multiplex primitive
// Daedaluz-goserial's port_linux.go wraps for WaitInput, generalized to the
// three-bit interest set spec.md §4.3 step 2/3 describes.
func (d *LinuxDevice) Multiplex(interest Interest, timeout time.Duration) (ReadyMask, error) {
	events := int16(unix.POLLPRI) // signaling events surface as exceptional condition
	if interest.Readable {
		events |= unix.POLLIN
	}
	if interest.Writable {
		events |= unix.POLLOUT
	}
	fds := []unix.PollFd{{Fd: int32(d.fd), Events: events}}

	ms := int(timeout / time.Millisecond)
	if timeout < 0 {
		ms = -1
	}
	n, err := unix.Poll(fds, ms)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	var mask ReadyMask
	if fds[0].Revents&unix.POLLPRI != 0 {
		mask |= Signaling
	}
	if fds[0].Revents&unix.POLLIN != 0 {
		mask |= Readable
	}
	if fds[0].Revents&unix.POLLOUT != 0 {
		mask |= Writable
	}
	return mask, nil
}

func (d *LinuxDevice) NextEvent() (Event, error) {
	var v int32
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), ioctlGetEvent, uintptr(ptrOf(&v))); errno != 0 {
		return NoEvent, fmt.Errorf("hw: get event: %w", errno)
	}
	switch v {
	case 1:
		return BitsChanged, nil
	case 2:
		return Alarm, nil
	case 3:
		return NoAlarm, nil
	default:
		return NoEvent, nil
	}
}

func (d *LinuxDevice) Close() error {
	if !d.fdCreated {
		return nil
	}
	return unix.Close(d.fd)
}
