package analyzer

// catalogQueries holds the introspection queries for one source engine.
// Every engine returns the same column aliases so rows parse uniformly.
// Per-table queries take (schema, table) parameters.
type catalogQueries struct {
	tables      string
	columns     string
	primaryKey  string
	uniqueKeys  string
	checks      string
	foreignKeys string
}

var mssqlQueries = catalogQueries{
	tables: `
		SELECT s.name AS schema_name, t.name AS table_name
		FROM sys.tables t
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		WHERE t.is_ms_shipped = 0
		AND s.name NOT IN ('sys', 'INFORMATION_SCHEMA', 'guest')
		ORDER BY s.name, t.name
	`,
	columns: `
		SELECT
			c.name AS column_name,
			TYPE_NAME(c.system_type_id) AS data_type,
			CASE WHEN TYPE_NAME(c.system_type_id) IN ('char', 'nchar', 'varchar', 'nvarchar', 'binary', 'varbinary')
				THEN c.max_length END AS max_length,
			CASE WHEN TYPE_NAME(c.system_type_id) IN ('decimal', 'numeric', 'float')
				THEN c.precision END AS numeric_precision,
			CASE WHEN TYPE_NAME(c.system_type_id) IN ('decimal', 'numeric', 'datetime2', 'time', 'datetimeoffset')
				THEN c.scale END AS numeric_scale,
			CASE WHEN c.is_nullable = 1 THEN 'YES' ELSE 'NO' END AS is_nullable,
			dc.definition AS column_default,
			c.column_id AS ordinal_position,
			CASE WHEN c.is_identity = 1 THEN 'YES' ELSE 'NO' END AS is_identity,
			'YES' AS default_is_expression
		FROM sys.columns c
		JOIN sys.tables t ON t.object_id = c.object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		LEFT JOIN sys.default_constraints dc ON dc.object_id = c.default_object_id
		WHERE s.name = @p1 AND t.name = @p2
		ORDER BY c.column_id
	`,
	primaryKey: `
		SELECT kc.name AS constraint_name, col.name AS column_name
		FROM sys.key_constraints kc
		JOIN sys.tables t ON t.object_id = kc.parent_object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		JOIN sys.index_columns ic ON ic.object_id = kc.parent_object_id AND ic.index_id = kc.unique_index_id
		JOIN sys.columns col ON col.object_id = ic.object_id AND col.column_id = ic.column_id
		WHERE kc.type = 'PK' AND s.name = @p1 AND t.name = @p2
		ORDER BY ic.key_ordinal
	`,
	uniqueKeys: `
		SELECT kc.name AS constraint_name, col.name AS column_name
		FROM sys.key_constraints kc
		JOIN sys.tables t ON t.object_id = kc.parent_object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		JOIN sys.index_columns ic ON ic.object_id = kc.parent_object_id AND ic.index_id = kc.unique_index_id
		JOIN sys.columns col ON col.object_id = ic.object_id AND col.column_id = ic.column_id
		WHERE kc.type = 'UQ' AND s.name = @p1 AND t.name = @p2
		ORDER BY kc.name, ic.key_ordinal
	`,
	checks: `
		SELECT cc.name AS constraint_name, cc.definition AS definition
		FROM sys.check_constraints cc
		JOIN sys.tables t ON t.object_id = cc.parent_object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		WHERE s.name = @p1 AND t.name = @p2
		ORDER BY cc.name
	`,
	foreignKeys: `
		SELECT
			fk.name AS constraint_name,
			ss.name AS source_schema,
			st.name AS source_table,
			sc.name AS source_column,
			ts.name AS target_schema,
			tt.name AS target_table,
			tc.name AS target_column,
			fk.delete_referential_action_desc AS delete_action,
			fk.update_referential_action_desc AS update_action
		FROM sys.foreign_keys fk
		JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
		JOIN sys.tables st ON st.object_id = fk.parent_object_id
		JOIN sys.schemas ss ON ss.schema_id = st.schema_id
		JOIN sys.columns sc ON sc.object_id = fkc.parent_object_id AND sc.column_id = fkc.parent_column_id
		JOIN sys.tables tt ON tt.object_id = fk.referenced_object_id
		JOIN sys.schemas ts ON ts.schema_id = tt.schema_id
		JOIN sys.columns tc ON tc.object_id = fkc.referenced_object_id AND tc.column_id = fkc.referenced_column_id
		ORDER BY ss.name, st.name, fk.name, fkc.constraint_column_id
	`,
}

var mysqlQueries = catalogQueries{
	tables: `
		SELECT TABLE_SCHEMA AS schema_name, TABLE_NAME AS table_name
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = DATABASE()
		AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME
	`,
	columns: `
		SELECT
			COLUMN_NAME AS column_name,
			DATA_TYPE AS data_type,
			COLUMN_TYPE AS column_type,
			CHARACTER_MAXIMUM_LENGTH AS max_length,
			NUMERIC_PRECISION AS numeric_precision,
			COALESCE(NUMERIC_SCALE, DATETIME_PRECISION) AS numeric_scale,
			IS_NULLABLE AS is_nullable,
			COLUMN_DEFAULT AS column_default,
			ORDINAL_POSITION AS ordinal_position,
			CASE WHEN EXTRA LIKE '%auto_increment%' THEN 'YES' ELSE 'NO' END AS is_identity,
			CASE WHEN EXTRA LIKE '%DEFAULT_GENERATED%' THEN 'YES' ELSE 'NO' END AS default_is_expression
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION
	`,
	primaryKey: `
		SELECT tc.CONSTRAINT_NAME AS constraint_name, kcu.COLUMN_NAME AS column_name
		FROM information_schema.TABLE_CONSTRAINTS tc
		JOIN information_schema.KEY_COLUMN_USAGE kcu
			ON kcu.CONSTRAINT_SCHEMA = tc.CONSTRAINT_SCHEMA
			AND kcu.CONSTRAINT_NAME = tc.CONSTRAINT_NAME
			AND kcu.TABLE_NAME = tc.TABLE_NAME
		WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY' AND tc.TABLE_SCHEMA = ? AND tc.TABLE_NAME = ?
		ORDER BY kcu.ORDINAL_POSITION
	`,
	uniqueKeys: `
		SELECT tc.CONSTRAINT_NAME AS constraint_name, kcu.COLUMN_NAME AS column_name
		FROM information_schema.TABLE_CONSTRAINTS tc
		JOIN information_schema.KEY_COLUMN_USAGE kcu
			ON kcu.CONSTRAINT_SCHEMA = tc.CONSTRAINT_SCHEMA
			AND kcu.CONSTRAINT_NAME = tc.CONSTRAINT_NAME
			AND kcu.TABLE_NAME = tc.TABLE_NAME
		WHERE tc.CONSTRAINT_TYPE = 'UNIQUE' AND tc.TABLE_SCHEMA = ? AND tc.TABLE_NAME = ?
		ORDER BY tc.CONSTRAINT_NAME, kcu.ORDINAL_POSITION
	`,
	checks: `
		SELECT cc.CONSTRAINT_NAME AS constraint_name, cc.CHECK_CLAUSE AS definition
		FROM information_schema.CHECK_CONSTRAINTS cc
		JOIN information_schema.TABLE_CONSTRAINTS tc
			ON tc.CONSTRAINT_SCHEMA = cc.CONSTRAINT_SCHEMA
			AND tc.CONSTRAINT_NAME = cc.CONSTRAINT_NAME
		WHERE tc.CONSTRAINT_TYPE = 'CHECK' AND tc.TABLE_SCHEMA = ? AND tc.TABLE_NAME = ?
		ORDER BY cc.CONSTRAINT_NAME
	`,
	foreignKeys: `
		SELECT
			kcu.CONSTRAINT_NAME AS constraint_name,
			kcu.TABLE_SCHEMA AS source_schema,
			kcu.TABLE_NAME AS source_table,
			kcu.COLUMN_NAME AS source_column,
			kcu.REFERENCED_TABLE_SCHEMA AS target_schema,
			kcu.REFERENCED_TABLE_NAME AS target_table,
			kcu.REFERENCED_COLUMN_NAME AS target_column,
			rc.DELETE_RULE AS delete_action,
			rc.UPDATE_RULE AS update_action
		FROM information_schema.KEY_COLUMN_USAGE kcu
		JOIN information_schema.REFERENTIAL_CONSTRAINTS rc
			ON rc.CONSTRAINT_SCHEMA = kcu.CONSTRAINT_SCHEMA
			AND rc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
			AND rc.TABLE_NAME = kcu.TABLE_NAME
		WHERE kcu.TABLE_SCHEMA = DATABASE()
		AND kcu.REFERENCED_TABLE_NAME IS NOT NULL
		ORDER BY kcu.TABLE_NAME, kcu.CONSTRAINT_NAME, kcu.ORDINAL_POSITION
	`,
}
