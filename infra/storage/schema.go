package storage

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS payments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entity_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		tax_amount TEXT NOT NULL DEFAULT '0',
		currency TEXT NOT NULL,
		payment_brand TEXT NOT NULL DEFAULT '',
		payment_type TEXT NOT NULL,
		descriptor TEXT NOT NULL DEFAULT '',
		merchant_transaction_id TEXT NOT NULL UNIQUE,
		merchant_invoice_id TEXT NOT NULL DEFAULT '',
		merchant_memo TEXT NOT NULL DEFAULT '',
		transaction_category TEXT NOT NULL DEFAULT '',
		sandbox BOOLEAN NOT NULL DEFAULT 0,
		resource_path TEXT NOT NULL DEFAULT '',
		checkout_id TEXT NOT NULL DEFAULT '',
		payment_id TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_checkout_id ON payments(checkout_id)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_payment_id ON payments(payment_id)`,
	`CREATE TABLE IF NOT EXISTS webhooks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		headers TEXT NOT NULL DEFAULT '{}',
		type TEXT NOT NULL,
		action TEXT NOT NULL DEFAULT '',
		decrypted_body TEXT NOT NULL,
		fingerprint TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_webhooks_fingerprint ON webhooks(fingerprint)`,
	`CREATE TABLE IF NOT EXISTS gateway_responses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		payment_id INTEGER REFERENCES payments(id) ON DELETE SET NULL,
		webhook_id INTEGER REFERENCES webhooks(id) ON DELETE SET NULL,
		kind TEXT NOT NULL,
		http_status_code INTEGER NOT NULL DEFAULT 0,
		url TEXT NOT NULL DEFAULT '',
		headers TEXT NOT NULL DEFAULT '{}',
		raw_content TEXT NOT NULL,
		gateway_id TEXT NOT NULL DEFAULT '',
		referenced_id TEXT NOT NULL DEFAULT '',
		merchant_transaction_id TEXT NOT NULL DEFAULT '',
		result_code TEXT NOT NULL DEFAULT '',
		record TEXT NOT NULL,
		classification INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_responses_payment ON gateway_responses(payment_id, kind)`,
	`CREATE INDEX IF NOT EXISTS idx_responses_gateway_id ON gateway_responses(gateway_id)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS payments (
		id BIGSERIAL PRIMARY KEY,
		entity_id TEXT NOT NULL,
		amount NUMERIC(14,2) NOT NULL,
		tax_amount NUMERIC(14,2) NOT NULL DEFAULT 0,
		currency VARCHAR(3) NOT NULL,
		payment_brand TEXT NOT NULL DEFAULT '',
		payment_type VARCHAR(2) NOT NULL,
		descriptor VARCHAR(127) NOT NULL DEFAULT '',
		merchant_transaction_id VARCHAR(255) NOT NULL UNIQUE,
		merchant_invoice_id VARCHAR(255) NOT NULL DEFAULT '',
		merchant_memo VARCHAR(255) NOT NULL DEFAULT '',
		transaction_category VARCHAR(32) NOT NULL DEFAULT '',
		sandbox BOOLEAN NOT NULL DEFAULT FALSE,
		resource_path TEXT NOT NULL DEFAULT '',
		checkout_id TEXT NOT NULL DEFAULT '',
		payment_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_checkout_id ON payments(checkout_id)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_payment_id ON payments(payment_id)`,
	`CREATE TABLE IF NOT EXISTS webhooks (
		id BIGSERIAL PRIMARY KEY,
		headers TEXT NOT NULL DEFAULT '{}',
		type TEXT NOT NULL,
		action TEXT NOT NULL DEFAULT '',
		decrypted_body TEXT NOT NULL,
		fingerprint TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_webhooks_fingerprint ON webhooks(fingerprint)`,
	`CREATE TABLE IF NOT EXISTS gateway_responses (
		id BIGSERIAL PRIMARY KEY,
		payment_id BIGINT REFERENCES payments(id) ON DELETE SET NULL,
		webhook_id BIGINT REFERENCES webhooks(id) ON DELETE SET NULL,
		kind VARCHAR(16) NOT NULL,
		http_status_code INTEGER NOT NULL DEFAULT 0,
		url TEXT NOT NULL DEFAULT '',
		headers TEXT NOT NULL DEFAULT '{}',
		raw_content TEXT NOT NULL,
		gateway_id TEXT NOT NULL DEFAULT '',
		referenced_id TEXT NOT NULL DEFAULT '',
		merchant_transaction_id TEXT NOT NULL DEFAULT '',
		result_code TEXT NOT NULL DEFAULT '',
		record TEXT NOT NULL,
		classification BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_responses_payment ON gateway_responses(payment_id, kind)`,
	`CREATE INDEX IF NOT EXISTS idx_responses_gateway_id ON gateway_responses(gateway_id)`,
}
