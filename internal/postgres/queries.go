package postgres

const (
	queryCreateUser = `
		INSERT INTO users (id, name, email, role, presence, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6)`
	queryGetUserByID = `
		SELECT id, name, email, role, presence, last_seen
		FROM users
		WHERE id = $1`
	queryUpdateUserRole     = `UPDATE users SET role = $2 WHERE id = $1`
	queryUpdateUserPresence = `UPDATE users SET presence = $2, last_seen = $3 WHERE id = $1`
	queryTouchUserLastSeen  = `UPDATE users SET last_seen = $2 WHERE id = $1`
)

const (
	queryCreateRoom = `
		INSERT INTO rooms (name, parent_id, created_by)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	queryGetRoom = `
		SELECT id, name, parent_id, created_by, created_at
		FROM rooms
		WHERE id = $1`
	queryListStandingRooms = `
		SELECT id, name, parent_id, created_by, created_at
		FROM rooms
		WHERE parent_id IS NULL
		  AND ($1::timestamptz IS NULL OR created_at < $1
		       OR (created_at = $1 AND id < $2::uuid))
		ORDER BY created_at DESC, id DESC
		LIMIT $3`
	queryDeleteRoom = `DELETE FROM rooms WHERE id = $1`
)

const (
	queryAddMember = `
		INSERT INTO room_members (room_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (room_id, user_id) DO NOTHING`
	queryRemoveMember = `DELETE FROM room_members WHERE room_id = $1 AND user_id = $2`
	queryMemberExists = `
		SELECT EXISTS(SELECT 1 FROM room_members WHERE room_id = $1 AND user_id = $2)`
	queryRoomsForUser = `
		SELECT r.id, r.name, r.parent_id, r.created_by, r.created_at
		FROM room_members AS m
		JOIN rooms AS r ON r.id = m.room_id
		WHERE m.user_id = $1
		ORDER BY m.joined_at ASC, r.id ASC`
	queryMembersForRoom = `
		SELECT m.user_id, u.name, u.email, m.joined_at
		FROM room_members AS m
		JOIN users AS u ON u.id = m.user_id
		WHERE m.room_id = $1
		ORDER BY m.joined_at ASC, m.user_id ASC`
)

const (
	queryCreateInvitation = `
		INSERT INTO invitations (token, room_id, role, creator_id, created_at, expires_at, is_used)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)`
	queryGetInvitationForUpdate = `
		SELECT token, room_id, role, creator_id, created_at, expires_at, is_used
		FROM invitations
		WHERE token = $1
		FOR UPDATE`
	queryGetInvitationDetailed = `
		SELECT i.token, i.room_id, i.role, i.creator_id, i.created_at, i.expires_at, i.is_used,
		       COALESCE(r.name, ''), COALESCE(u.name, '')
		FROM invitations AS i
		LEFT JOIN rooms AS r ON r.id = i.room_id
		LEFT JOIN users AS u ON u.id = i.creator_id
		WHERE i.token = $1`
	// условный UPDATE: из двух конкурентных accept пройдёт ровно один
	queryMarkInvitationUsed = `
		UPDATE invitations SET is_used = TRUE
		WHERE token = $1 AND is_used = FALSE`
	queryDeleteExpiredInvitations = `DELETE FROM invitations WHERE expires_at < $1`
)

const (
	querySaveMessage = `
		INSERT INTO room_messages (room_id, user_id, text, reply_to)
		VALUES ($1, $2, $3, $4)
		RETURNING id, room_id, user_id, text, reply_to, created_at`
	queryMessageHistory = `
		SELECT id, room_id, user_id, text, reply_to, created_at
		FROM room_messages
		WHERE room_id = $1
		  AND (
		    $2::timestamptz IS NULL
		    OR created_at < $2
		    OR (created_at = $2 AND id < $3::uuid)
		  )
		ORDER BY created_at DESC, id DESC
		LIMIT $4`
)
