package sqlite

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL CHECK (status IN ('active', 'inactive')),
				definition TEXT NOT NULL,
				last_executed TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				deleted_at TEXT
			);

			CREATE INDEX idx_workflows_created_at ON workflows(created_at);

			CREATE TABLE executions (
				id TEXT PRIMARY KEY,
				workflow_id TEXT NOT NULL,
				workflow_name TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL,
				input_data TEXT,
				output_data TEXT NOT NULL DEFAULT '[]',
				result TEXT,
				scheduled_at TEXT,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			);

			CREATE INDEX idx_executions_workflow_id ON executions(workflow_id);
			CREATE INDEX idx_executions_created_at ON executions(created_at);
		`,
		2: `
			CREATE TABLE outputs (
				seq INTEGER PRIMARY KEY AUTOINCREMENT,
				id TEXT NOT NULL UNIQUE,
				node_id TEXT NOT NULL,
				workflow_id TEXT NOT NULL DEFAULT '',
				execution_id TEXT NOT NULL DEFAULT '',
				output_type TEXT NOT NULL DEFAULT '',
				content TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT '',
				message TEXT NOT NULL DEFAULT '',
				created_at TEXT NOT NULL
			);

			CREATE INDEX idx_outputs_node_id ON outputs(node_id, seq);

			CREATE TABLE content_entities (
				id TEXT PRIMARY KEY,
				fields TEXT NOT NULL,
				custom_fields TEXT,
				created_at TEXT NOT NULL
			);
		`,
	}
}
