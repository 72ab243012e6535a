package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE modules (
				id BIGSERIAL PRIMARY KEY,
				api_name VARCHAR(255) NOT NULL UNIQUE,
				name VARCHAR(255) NOT NULL DEFAULT ''
			);

			CREATE TABLE users (
				id BIGSERIAL PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				email VARCHAR(255) NOT NULL DEFAULT '',
				is_active BOOLEAN NOT NULL DEFAULT true,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE module_records (
				id BIGSERIAL PRIMARY KEY,
				module_id BIGINT NOT NULL REFERENCES modules(id),
				data JSONB NOT NULL DEFAULT '{}',
				created_by BIGINT,
				updated_by BIGINT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_module_records_module_id ON module_records(module_id) WHERE deleted_at IS NULL;
			CREATE INDEX idx_module_records_data ON module_records USING GIN (data);

			CREATE TABLE pipelines (
				id BIGSERIAL PRIMARY KEY,
				module_id BIGINT NOT NULL REFERENCES modules(id),
				name VARCHAR(255) NOT NULL,
				stage_field_api_name VARCHAR(255) NOT NULL DEFAULT 'stage_id'
			);

			CREATE TABLE stages (
				id BIGSERIAL PRIMARY KEY,
				pipeline_id BIGINT NOT NULL REFERENCES pipelines(id) ON DELETE CASCADE,
				name VARCHAR(255) NOT NULL,
				display_order INT NOT NULL DEFAULT 0
			);

			CREATE INDEX idx_stages_pipeline_id ON stages(pipeline_id);

			CREATE TABLE stage_history (
				id BIGSERIAL PRIMARY KEY,
				record_id BIGINT NOT NULL,
				pipeline_id BIGINT NOT NULL,
				from_stage JSONB,
				to_stage_id BIGINT NOT NULL,
				changed_by BIGINT,
				reason TEXT,
				changed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_stage_history_record_id ON stage_history(record_id);
		`,
		2: `
			CREATE TABLE user_roles (
				role_id BIGINT NOT NULL,
				user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				PRIMARY KEY (role_id, user_id)
			);

			CREATE TABLE tags (
				id BIGSERIAL PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				slug VARCHAR(255) NOT NULL,
				color VARCHAR(32) NOT NULL DEFAULT ''
			);

			CREATE UNIQUE INDEX idx_tags_name ON tags (LOWER(name));

			CREATE TABLE record_tags (
				record_id BIGINT NOT NULL REFERENCES module_records(id) ON DELETE CASCADE,
				tag_id BIGINT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (record_id, tag_id)
			);

			CREATE TABLE notifications (
				id BIGSERIAL PRIMARY KEY,
				user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				title VARCHAR(255) NOT NULL,
				message TEXT NOT NULL DEFAULT '',
				type VARCHAR(50) NOT NULL DEFAULT '',
				record_id BIGINT,
				module_api_name VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				read_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_notifications_user_id ON notifications(user_id);
		`,
	}
}
