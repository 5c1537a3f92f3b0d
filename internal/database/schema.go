package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order by Migrate.  Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		username      VARCHAR(64)  NOT NULL,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role          ENUM('BUYER','SELLER','ADMIN') NOT NULL DEFAULT 'BUYER',
		is_approved   BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at    DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
		UNIQUE KEY uq_users_username (username),
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_refresh_hash (token_hash),
		KEY idx_refresh_user (user_id),
		CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS listings (
		id                  BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		seller_id           BIGINT UNSIGNED NOT NULL,
		title               VARCHAR(255) NOT NULL,
		description         TEXT NOT NULL,
		category            VARCHAR(100) NOT NULL DEFAULT '',
		listing_type        ENUM('direct','auction') NOT NULL,
		status              ENUM('active','sold','ended','banned') NOT NULL DEFAULT 'active',
		price               DECIMAL(14,2) NULL,
		stock               INT NOT NULL DEFAULT 1,
		start_bid           DECIMAL(14,2) NULL,
		min_bid_increment   DECIMAL(14,2) NOT NULL DEFAULT 1.00,
		current_highest_bid DECIMAL(14,2) NOT NULL DEFAULT 0.00,
		end_time            DATETIME(6) NULL,
		created_at          DATETIME(6) NOT NULL,
		updated_at          DATETIME(6) NOT NULL,
		KEY idx_listings_status (status, listing_type),
		KEY idx_listings_seller (seller_id),
		KEY idx_listings_category (category),
		CONSTRAINT fk_listings_seller FOREIGN KEY (seller_id) REFERENCES users(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS bids (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		listing_id BIGINT UNSIGNED NOT NULL,
		bidder_id  BIGINT UNSIGNED NOT NULL,
		amount     DECIMAL(14,2) NOT NULL,
		placed_at  DATETIME(6) NOT NULL,
		KEY idx_bids_listing (listing_id, placed_at),
		KEY idx_bids_bidder (bidder_id),
		CONSTRAINT fk_bids_listing FOREIGN KEY (listing_id) REFERENCES listings(id),
		CONSTRAINT fk_bids_bidder FOREIGN KEY (bidder_id) REFERENCES users(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS transactions (
		id                BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		listing_id        BIGINT UNSIGNED NOT NULL,
		buyer_id          BIGINT UNSIGNED NOT NULL,
		seller_id         BIGINT UNSIGNED NOT NULL,
		total_amount      DECIMAL(14,2) NOT NULL,
		commission_rate   DECIMAL(6,4)  NOT NULL,
		commission_amount DECIMAL(14,2) NOT NULL,
		net_seller_amount DECIMAL(14,2) NOT NULL,
		status            ENUM('pending','completed','disputed') NOT NULL,
		created_at        DATETIME(6) NOT NULL,
		updated_at        DATETIME(6) NOT NULL,
		KEY idx_tx_listing (listing_id),
		KEY idx_tx_buyer (buyer_id),
		KEY idx_tx_seller (seller_id),
		CONSTRAINT fk_tx_listing FOREIGN KEY (listing_id) REFERENCES listings(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing table.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
