package mysql

// Days are read back as YYYY-MM-DD text so scanning does not depend on parseTime/loc.

const listRoomsSQL = `
SELECT id, block, name, ranges
FROM rooms
ORDER BY block, name
`

const getRoomSQL = `
SELECT id, block, name, ranges
FROM rooms
WHERE id = ?
`

const countRoomsSQL = `SELECT COUNT(*) FROM rooms`

const insertRoomsPrefix = "INSERT INTO rooms (id, block, name, ranges) VALUES "

const updateRoomRangesSQL = `UPDATE rooms SET ranges = ? WHERE id = ?`

const listBookingsSQL = `
SELECT
  id,
  room_id,
  block,
  room_name,
  DATE_FORMAT(from_day, '%Y-%m-%d'),
  DATE_FORMAT(to_day, '%Y-%m-%d'),
  guest_name,
  guest_phone
FROM bookings
WHERE to_day >= ?
ORDER BY from_day, id
`

const insertBookingSQL = `
INSERT INTO bookings
  (id, room_id, block, room_name, from_day, to_day, guest_name, guest_phone)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?)
`

const deleteBookingSQL = `DELETE FROM bookings WHERE id = ?`

const listBlackoutsSQL = `SELECT block, ranges FROM blackouts ORDER BY block`

const upsertBlackoutSQL = `
INSERT INTO blackouts (block, ranges)
VALUES (?, ?)
ON DUPLICATE KEY UPDATE
  ranges = VALUES(ranges)
`

// Note: `key` and `value` are reserved; keep them quoted everywhere.
const getSettingSQL = "SELECT `key`, `value` FROM settings WHERE `key` = ?"

const putSettingSQL = "INSERT INTO settings (`key`, `value`) VALUES (?, ?)\n" +
	"ON DUPLICATE KEY UPDATE `value` = VALUES(`value`)"
