package domain

import "time"

const (
	// Blockchain constants
	ETHEREUM_ZERO_ADDRESS = "0x0000000000000000000000000000000000000000"

	// Lock name prefix for ownership recomputation of a single token
	OWNERSHIP_LOCK_PREFIX = "ownership"

	// Key used to persist the last block handed out by RECEIVE_NEW_BLOCKS
	BLOCK_CURSOR_KEY = "ethereum_block_cursor"

	// Lock name serializing cursor advances across workers
	BLOCK_CURSOR_LOCK = "cursor:" + BLOCK_CURSOR_KEY

	// Default lock settings for ownership recomputation
	DEFAULT_LOCK_TIMEOUT       = 30 * time.Second
	DEFAULT_LOCK_EXPIRY        = 2 * time.Minute
	DEFAULT_LOCK_POLL_INTERVAL = 250 * time.Millisecond
)
