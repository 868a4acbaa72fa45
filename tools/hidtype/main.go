//go:build linux

// hidtype injects text through a virtual uinput keyboard so the events
// travel the full kernel input stack. At the point a browser or display
// server observes them they are indistinguishable from a physical USB
// keyboard, which is what makes it useful for producing the
// hardware-input branch of a capture pair.
//
// Usage:
//
//	hidtype [-delay 100] [-pre-delay 500] "text to type"
//	hidtype -reset
//
// The -reset mode releases every key the tool knows about. If a previous
// run was interrupted between press and release, a key can be left
// latched in the kernel's view; reset clears that without a reboot.
package main

import (
	"bytes"
	"encoding/binary"
	"flag"
	"fmt"
	"os"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

const deviceName = "padscope-hidtype"

// keystroke is one ASCII character expressed as a key code plus an
// optional shift modifier.
type keystroke struct {
	code  uint16
	shift bool
}

// asciiKeys maps the printable ASCII range onto Linux key codes. The
// table covers everything a credential field will plausibly contain;
// characters outside it abort the run rather than typing the wrong key.
var asciiKeys = map[byte]keystroke{
	'a': {unix.KEY_A, false}, 'b': {unix.KEY_B, false}, 'c': {unix.KEY_C, false},
	'd': {unix.KEY_D, false}, 'e': {unix.KEY_E, false}, 'f': {unix.KEY_F, false},
	'g': {unix.KEY_G, false}, 'h': {unix.KEY_H, false}, 'i': {unix.KEY_I, false},
	'j': {unix.KEY_J, false}, 'k': {unix.KEY_K, false}, 'l': {unix.KEY_L, false},
	'm': {unix.KEY_M, false}, 'n': {unix.KEY_N, false}, 'o': {unix.KEY_O, false},
	'p': {unix.KEY_P, false}, 'q': {unix.KEY_Q, false}, 'r': {unix.KEY_R, false},
	's': {unix.KEY_S, false}, 't': {unix.KEY_T, false}, 'u': {unix.KEY_U, false},
	'v': {unix.KEY_V, false}, 'w': {unix.KEY_W, false}, 'x': {unix.KEY_X, false},
	'y': {unix.KEY_Y, false}, 'z': {unix.KEY_Z, false},

	'A': {unix.KEY_A, true}, 'B': {unix.KEY_B, true}, 'C': {unix.KEY_C, true},
	'D': {unix.KEY_D, true}, 'E': {unix.KEY_E, true}, 'F': {unix.KEY_F, true},
	'G': {unix.KEY_G, true}, 'H': {unix.KEY_H, true}, 'I': {unix.KEY_I, true},
	'J': {unix.KEY_J, true}, 'K': {unix.KEY_K, true}, 'L': {unix.KEY_L, true},
	'M': {unix.KEY_M, true}, 'N': {unix.KEY_N, true}, 'O': {unix.KEY_O, true},
	'P': {unix.KEY_P, true}, 'Q': {unix.KEY_Q, true}, 'R': {unix.KEY_R, true},
	'S': {unix.KEY_S, true}, 'T': {unix.KEY_T, true}, 'U': {unix.KEY_U, true},
	'V': {unix.KEY_V, true}, 'W': {unix.KEY_W, true}, 'X': {unix.KEY_X, true},
	'Y': {unix.KEY_Y, true}, 'Z': {unix.KEY_Z, true},

	'1': {unix.KEY_1, false}, '2': {unix.KEY_2, false}, '3': {unix.KEY_3, false},
	'4': {unix.KEY_4, false}, '5': {unix.KEY_5, false}, '6': {unix.KEY_6, false},
	'7': {unix.KEY_7, false}, '8': {unix.KEY_8, false}, '9': {unix.KEY_9, false},
	'0': {unix.KEY_0, false},

	'!': {unix.KEY_1, true}, '@': {unix.KEY_2, true}, '#': {unix.KEY_3, true},
	'$': {unix.KEY_4, true}, '%': {unix.KEY_5, true}, '^': {unix.KEY_6, true},
	'&': {unix.KEY_7, true}, '*': {unix.KEY_8, true}, '(': {unix.KEY_9, true},
	')': {unix.KEY_0, true},

	' ':  {unix.KEY_SPACE, false},
	'-':  {unix.KEY_MINUS, false},
	'_':  {unix.KEY_MINUS, true},
	'=':  {unix.KEY_EQUAL, false},
	'+':  {unix.KEY_EQUAL, true},
	'[':  {unix.KEY_LEFTBRACE, false},
	'{':  {unix.KEY_LEFTBRACE, true},
	']':  {unix.KEY_RIGHTBRACE, false},
	'}':  {unix.KEY_RIGHTBRACE, true},
	';':  {unix.KEY_SEMICOLON, false},
	':':  {unix.KEY_SEMICOLON, true},
	'\'': {unix.KEY_APOSTROPHE, false},
	'"':  {unix.KEY_APOSTROPHE, true},
	'`':  {unix.KEY_GRAVE, false},
	'~':  {unix.KEY_GRAVE, true},
	'\\': {unix.KEY_BACKSLASH, false},
	'|':  {unix.KEY_BACKSLASH, true},
	',':  {unix.KEY_COMMA, false},
	'<':  {unix.KEY_COMMA, true},
	'.':  {unix.KEY_DOT, false},
	'>':  {unix.KEY_DOT, true},
	'/':  {unix.KEY_SLASH, false},
	'?':  {unix.KEY_SLASH, true},
	'\n': {unix.KEY_ENTER, false},
	'\t': {unix.KEY_TAB, false},
}

// inputEvent matches the Linux input_event struct.
type inputEvent struct {
	Time  syscall.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

// uinputSetup matches the Linux uinput_setup struct used by UI_DEV_SETUP.
type uinputSetup struct {
	ID           inputID
	Name         [80]byte
	FFEffectsMax uint32
}

// inputID matches the Linux input_id struct.
type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

// virtualKeyboard wraps an open uinput device.
type virtualKeyboard struct {
	f *os.File
}

// openKeyboard creates a uinput keyboard advertising exactly the key
// codes in the table plus left shift.
func openKeyboard() (*virtualKeyboard, error) {
	f, err := os.OpenFile("/dev/uinput", os.O_WRONLY|syscall.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/uinput (need root or uinput group): %w", err)
	}

	fd := f.Fd()
	if err := unix.IoctlSetInt(int(fd), unix.UI_SET_EVBIT, unix.EV_KEY); err != nil {
		f.Close()
		return nil, fmt.Errorf("UI_SET_EVBIT: %w", err)
	}
	if err := unix.IoctlSetInt(int(fd), unix.UI_SET_EVBIT, unix.EV_SYN); err != nil {
		f.Close()
		return nil, fmt.Errorf("UI_SET_EVBIT: %w", err)
	}

	codes := map[uint16]bool{unix.KEY_LEFTSHIFT: true}
	for _, ks := range asciiKeys {
		codes[ks.code] = true
	}
	for code := range codes {
		if err := unix.IoctlSetInt(int(fd), unix.UI_SET_KEYBIT, int(code)); err != nil {
			f.Close()
			return nil, fmt.Errorf("UI_SET_KEYBIT %d: %w", code, err)
		}
	}

	setup := uinputSetup{
		ID: inputID{Bustype: unix.BUS_USB, Vendor: 0x1d6b, Product: 0x0104, Version: 1},
	}
	copy(setup.Name[:], deviceName)
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, unix.UI_DEV_SETUP, uintptr(unsafe.Pointer(&setup))); errno != 0 {
		f.Close()
		return nil, fmt.Errorf("UI_DEV_SETUP: %w", errno)
	}
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, unix.UI_DEV_CREATE, 0); errno != 0 {
		f.Close()
		return nil, fmt.Errorf("UI_DEV_CREATE: %w", errno)
	}

	return &virtualKeyboard{f: f}, nil
}

// Close destroys the virtual device. The kernel releases any keys still
// held when the device goes away.
func (k *virtualKeyboard) Close() error {
	unix.Syscall(unix.SYS_IOCTL, k.f.Fd(), unix.UI_DEV_DESTROY, 0)
	return k.f.Close()
}

func (k *virtualKeyboard) emit(evType, code uint16, value int32) error {
	ev := inputEvent{Type: evType, Code: code, Value: value}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &ev); err != nil {
		return err
	}
	_, err := k.f.Write(buf.Bytes())
	return err
}

func (k *virtualKeyboard) sync() error {
	return k.emit(unix.EV_SYN, unix.SYN_REPORT, 0)
}

// typeKey presses and releases one key, wrapping it in shift when the
// character needs it. The press and release are separate SYN-delimited
// reports so the event ordering matches a physical keyboard.
func (k *virtualKeyboard) typeKey(ks keystroke) error {
	if ks.shift {
		if err := k.emit(unix.EV_KEY, unix.KEY_LEFTSHIFT, 1); err != nil {
			return err
		}
		if err := k.sync(); err != nil {
			return err
		}
	}
	if err := k.emit(unix.EV_KEY, ks.code, 1); err != nil {
		return err
	}
	if err := k.sync(); err != nil {
		return err
	}
	if err := k.emit(unix.EV_KEY, ks.code, 0); err != nil {
		return err
	}
	if err := k.sync(); err != nil {
		return err
	}
	if ks.shift {
		if err := k.emit(unix.EV_KEY, unix.KEY_LEFTSHIFT, 0); err != nil {
			return err
		}
		if err := k.sync(); err != nil {
			return err
		}
	}
	return nil
}

// releaseAll emits key-up for every key in the table. Used by -reset.
func (k *virtualKeyboard) releaseAll() error {
	codes := map[uint16]bool{unix.KEY_LEFTSHIFT: true}
	for _, ks := range asciiKeys {
		codes[ks.code] = true
	}
	for code := range codes {
		if err := k.emit(unix.EV_KEY, code, 0); err != nil {
			return err
		}
	}
	return k.sync()
}

func typeText(text string, charDelay, preDelay time.Duration) error {
	for i := 0; i < len(text); i++ {
		if _, ok := asciiKeys[text[i]]; !ok {
			return fmt.Errorf("no key mapping for character %q at position %d", text[i], i)
		}
	}

	kb, err := openKeyboard()
	if err != nil {
		return err
	}
	defer kb.Close()

	fmt.Fprintf(os.Stderr, "[hidtype] preparing to type %d characters\n", len(text))
	fmt.Fprintf(os.Stderr, "[hidtype] pre-delay: %v, char delay: %v\n", preDelay, charDelay)

	// Give the display server time to pick up the new device and the
	// operator time to place focus on the target field.
	time.Sleep(preDelay)

	fmt.Fprintln(os.Stderr, "[hidtype] starting to type...")
	for i := 0; i < len(text); i++ {
		if err := kb.typeKey(asciiKeys[text[i]]); err != nil {
			return fmt.Errorf("typing character at position %d: %w", i, err)
		}
		if (i+1)%10 == 0 {
			fmt.Fprintf(os.Stderr, "[hidtype] progress: %d/%d\n", i+1, len(text))
		}
		if i < len(text)-1 {
			time.Sleep(charDelay)
		}
	}

	fmt.Fprintf(os.Stderr, "[hidtype] typed %d characters\n", len(text))
	return nil
}

func resetKeyboard() error {
	kb, err := openKeyboard()
	if err != nil {
		return err
	}
	defer kb.Close()

	fmt.Fprintln(os.Stderr, "[hidtype] releasing all known keys...")
	time.Sleep(500 * time.Millisecond)
	if err := kb.releaseAll(); err != nil {
		return err
	}
	time.Sleep(500 * time.Millisecond)
	fmt.Fprintln(os.Stderr, "[hidtype] reset complete")
	return nil
}

func main() {
	delay := flag.Int("delay", 100, "delay between characters in ms")
	preDelay := flag.Int("pre-delay", 500, "initial delay before typing in ms")
	reset := flag.Bool("reset", false, "release all keys and exit")
	flag.Parse()

	if *reset {
		if err := resetKeyboard(); err != nil {
			fmt.Fprintf(os.Stderr, "[hidtype] fatal: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("SUCCESS")
		return
	}

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: hidtype [flags] \"text to type\"")
		flag.PrintDefaults()
		os.Exit(2)
	}

	err := typeText(flag.Arg(0),
		time.Duration(*delay)*time.Millisecond,
		time.Duration(*preDelay)*time.Millisecond)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[hidtype] fatal: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("SUCCESS")
}
