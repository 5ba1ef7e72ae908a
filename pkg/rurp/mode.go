package rurp

import (
	"fmt"
	"log"
	"time"

	"github.com/mazen160/go-random"
	"github.com/mbalug7/go-rurp/pkg/hal"
)

// ModeController moves the shared pins between the host link and the
// register bus. It does not guard the data path, see Shield for that.
type ModeController struct {
	data         hal.DataBus
	link         hal.HostLink
	baudRate     int
	readyTimeout time.Duration
	mode         hal.Mode
	session      string
	sessions     uint32 // programmer sessions opened so far
	logger       *log.Logger
}

func NewModeController(data hal.DataBus, link hal.HostLink, baudRate int, readyTimeout time.Duration, logger *log.Logger) *ModeController {
	return &ModeController{
		data:         data,
		link:         link,
		baudRate:     baudRate,
		readyTimeout: readyTimeout,
		mode:         hal.ModeCommunication,
		logger:       logger,
	}
}

func (obj *ModeController) Mode() hal.Mode {
	return obj.mode
}

// Session returns the tag of the current programmer session, empty in
// communication mode.
func (obj *ModeController) Session() string {
	return obj.session
}

// EnterCommunicationMode releases the receive line and (re)opens the host
// link. It returns once the link is ready.
func (obj *ModeController) EnterCommunicationMode() error {
	if err := obj.data.SetDirection(hal.HostLinkRXMask, hal.DirectionInput); err != nil {
		return fmt.Errorf("failed to release host link pin: %w", err)
	}
	if err := obj.link.Open(obj.baudRate); err != nil {
		return fmt.Errorf("failed to open host link: %w", err)
	}
	if err := hal.WaitUntil("host link ready", obj.readyTimeout, obj.link.Ready); err != nil {
		return err
	}
	if err := obj.link.Flush(); err != nil {
		return fmt.Errorf("failed to flush host link: %w", err)
	}
	if obj.session != "" {
		obj.logger.Printf("programmer session %s closed", obj.session)
	}
	obj.session = ""
	obj.mode = hal.ModeCommunication
	return nil
}

// EnterProgrammerMode closes the host link and drives the receive line.
func (obj *ModeController) EnterProgrammerMode() error {
	if err := obj.link.Close(); err != nil {
		return fmt.Errorf("failed to close host link: %w", err)
	}
	if err := obj.data.SetDirection(hal.HostLinkRXMask, hal.DirectionOutput); err != nil {
		return fmt.Errorf("failed to drive host link pin: %w", err)
	}
	obj.mode = hal.ModeProgrammer
	obj.sessions++
	obj.session = obj.newSessionTag()
	obj.logger.Printf("programmer session %s opened", obj.session)
	return nil
}

// newSessionTag falls back to the session counter on boards without an
// entropy source.
func (obj *ModeController) newSessionTag() string {
	id, err := random.String(8)
	if err != nil {
		obj.logger.Printf("failed to generate session id: %s", err)
		return fmt.Sprintf("%08x", obj.sessions)
	}
	return id
}
