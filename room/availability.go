package room

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"gorm.io/gorm"

	"github.com/lodgekeep/lodgekeep/engine"
)

// Statuses under which a booking consumes its room's nights. Values mirror the
// booking package; the ledger reads the bookings table directly to keep the
// dependency pointing one way.
var occupyingStatuses = []string{"PENDING_PAYMENT", "CONFIRMED", "CHECKED_IN"}

// Availability is the read-path answer for a room type and date range.
type Availability struct {
	Available      bool `json:"available"`
	AvailableRooms int  `json:"availableRooms"`
}

// Ledger tracks which date-nights are committed to bookings or blocks and
// answers availability questions about them. It never writes; reserving nights
// happens inside booking creation.
type Ledger struct {
	db    *gorm.DB
	rooms *Repository
	l     log.Logger
}

func NewLedger(db *gorm.DB, rooms *Repository, l log.Logger) *Ledger {
	return &Ledger{db: db, rooms: rooms, l: l}
}

type stay struct {
	RoomID       uint
	CheckInDate  time.Time
	CheckOutDate time.Time
}

// CheckAvailability reports how many rooms of the type are free on every night
// of [checkIn, checkOut). The answer is the worst night, not the average, and
// can go stale between the quote and the commit.
func (lg *Ledger) CheckAvailability(ctx context.Context, roomTypeID uint, checkIn, checkOut time.Time) (Availability, error) {
	checkIn, checkOut = DateOnly(checkIn), DateOnly(checkOut)
	if !checkOut.After(checkIn) {
		return Availability{}, engine.Invalidf("checkOutDate", "must be after check-in date")
	}

	rooms, err := lg.rooms.RoomsOfType(ctx, nil, roomTypeID)
	if err != nil {
		return Availability{}, err
	}
	if len(rooms) == 0 {
		if _, err := lg.rooms.TypeByID(ctx, nil, roomTypeID); err != nil {
			return Availability{}, err
		}
		return Availability{Available: false, AvailableRooms: 0}, nil
	}

	stays, err := lg.staysOverlapping(ctx, lg.db, roomTypeID, checkIn, checkOut)
	if err != nil {
		return Availability{}, err
	}
	blocks, err := lg.blocksOverlapping(ctx, lg.db, roomIDs(rooms), checkIn, checkOut)
	if err != nil {
		return Availability{}, err
	}

	free := len(rooms)
	for night := checkIn; night.Before(checkOut); night = night.AddDate(0, 0, 1) {
		n := 0
		for _, rm := range rooms {
			if roomFreeOn(rm.ID, night, stays, blocks) {
				n++
			}
		}
		if n < free {
			free = n
		}
	}

	level.Debug(lg.l).Log(
		"msg", "availability checked",
		"roomType", roomTypeID,
		"checkIn", checkIn.Format(time.DateOnly),
		"checkOut", checkOut.Format(time.DateOnly),
		"free", free,
	)

	return Availability{Available: free > 0, AvailableRooms: free}, nil
}

// FreeRoom picks the lowest-id room of the type that is free on every night of
// the range. It returns CapacityError when none is, which is also the answer
// when per-night counts are positive but no single room covers the whole stay.
// Callers inside a transaction pass it as tx so the re-check reads the same
// handle the booking write will use; a nil tx reads the ledger's own
// connection.
func (lg *Ledger) FreeRoom(ctx context.Context, tx *gorm.DB, roomTypeID uint, checkIn, checkOut time.Time) (*Room, error) {
	h := tx
	if h == nil {
		h = lg.db
	}

	checkIn, checkOut = DateOnly(checkIn), DateOnly(checkOut)
	if !checkOut.After(checkIn) {
		return nil, engine.Invalidf("checkOutDate", "must be after check-in date")
	}

	rooms, err := lg.rooms.RoomsOfType(ctx, tx, roomTypeID)
	if err != nil {
		return nil, err
	}
	if len(rooms) == 0 {
		if _, err := lg.rooms.TypeByID(ctx, tx, roomTypeID); err != nil {
			return nil, err
		}
		return nil, &engine.CapacityError{RoomTypeID: roomTypeID, CheckIn: checkIn, CheckOut: checkOut}
	}

	stays, err := lg.staysOverlapping(ctx, h, roomTypeID, checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	blocks, err := lg.blocksOverlapping(ctx, h, roomIDs(rooms), checkIn, checkOut)
	if err != nil {
		return nil, err
	}

	for i := range rooms {
		rm := rooms[i]
		clean := true
		for night := checkIn; night.Before(checkOut); night = night.AddDate(0, 0, 1) {
			if !roomFreeOn(rm.ID, night, stays, blocks) {
				clean = false
				break
			}
		}
		if clean {
			return &rm, nil
		}
	}

	return nil, &engine.CapacityError{RoomTypeID: roomTypeID, CheckIn: checkIn, CheckOut: checkOut}
}

// BookedDates lists the nights currently consumed on one room, for the
// front-desk calendar.
func (lg *Ledger) BookedDates(ctx context.Context, roomID uint) ([]string, error) {
	if _, err := lg.rooms.RoomByID(ctx, nil, roomID); err != nil {
		return nil, err
	}

	var stays []stay
	err := lg.db.WithContext(ctx).
		Raw(`SELECT room_id, check_in_date, check_out_date FROM bookings
			WHERE room_id = ? AND status IN ? AND deleted_at IS NULL`,
			roomID, occupyingStatuses).
		Scan(&stays).Error
	if err != nil {
		return nil, err
	}

	dates := []string{}
	for _, s := range stays {
		for night := DateOnly(s.CheckInDate); night.Before(DateOnly(s.CheckOutDate)); night = night.AddDate(0, 0, 1) {
			dates = append(dates, night.Format(time.DateOnly))
		}
	}
	return dates, nil
}

func (lg *Ledger) staysOverlapping(ctx context.Context, h *gorm.DB, roomTypeID uint, from, to time.Time) ([]stay, error) {
	var stays []stay
	err := h.WithContext(ctx).
		Raw(`SELECT room_id, check_in_date, check_out_date FROM bookings
			WHERE room_type_id = ? AND status IN ?
			AND check_in_date < ? AND check_out_date > ?
			AND deleted_at IS NULL`,
			roomTypeID, occupyingStatuses, to, from).
		Scan(&stays).Error
	if err != nil {
		return nil, err
	}
	return stays, nil
}

func (lg *Ledger) blocksOverlapping(ctx context.Context, h *gorm.DB, roomIDs []uint, from, to time.Time) ([]RoomBlock, error) {
	if len(roomIDs) == 0 {
		return nil, nil
	}
	var blocks []RoomBlock
	err := h.WithContext(ctx).
		Where("room_id IN ? AND start_date < ? AND end_date > ?", roomIDs, to, from).
		Find(&blocks).Error
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

// roomFreeOn reports whether a room is unoccupied and unblocked on one night.
// Ranges are half-open, so a stay ending on a date leaves that night free for
// a same-day turnover.
func roomFreeOn(roomID uint, night time.Time, stays []stay, blocks []RoomBlock) bool {
	for _, s := range stays {
		if s.RoomID == roomID && !night.Before(DateOnly(s.CheckInDate)) && night.Before(DateOnly(s.CheckOutDate)) {
			return false
		}
	}
	for _, b := range blocks {
		if b.RoomID == roomID && !night.Before(DateOnly(b.StartDate)) && night.Before(DateOnly(b.EndDate)) {
			return false
		}
	}
	return true
}

func roomIDs(rooms []Room) []uint {
	ids := make([]uint, 0, len(rooms))
	for _, r := range rooms {
		ids = append(ids, r.ID)
	}
	return ids
}

// DateOnly truncates to the calendar date in UTC, the granularity all stay
// boundaries use.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Nights is the count of nights in the half-open range [checkIn, checkOut).
func Nights(checkIn, checkOut time.Time) int {
	return int(DateOnly(checkOut).Sub(DateOnly(checkIn)).Hours() / 24)
}
