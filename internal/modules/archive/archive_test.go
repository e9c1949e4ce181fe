package archive

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCamelToSnake(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"createdAt", "created_at"},
		{"CreatedAt", "created_at"},
		{"riskScore", "risk_score"},
		{"sourceURL", "source_url"},
		{"HTTPStatus", "http_status"},
		{"already_snake", "already_snake"},
		{"with-dash", "with_dash"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := camelToSnake(tc.in); got != tc.want {
			t.Errorf("camelToSnake(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolveRestoreTableName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"analyses", "analyses"},
		{"analysisresults", "analyses"},
		{"profiles", "personalization_profiles"},
		{"alerthistory", "alert_events"},
		{"sessions", "user_sessions"},
		{"unknowncollection", ""},
	}
	for _, tc := range cases {
		if got := resolveRestoreTableName(tc.in); got != tc.want {
			t.Errorf("resolveRestoreTableName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeRestoreColumnName(t *testing.T) {
	cases := []struct {
		table string
		in    string
		want  string
	}{
		{"analyses", "_id", "id"},
		{"analyses", "created", "created_at"},
		{"analyses", "documentId", "document_id"},
		{"analyses", "__v", ""},
		{"users", "passwordHash", "password"},
		{"documents", "url", "source_url"},
		{"personalization_profiles", "rawResponse", "response"},
		{"options", "_id", ""},
		{"request_logs", "ipAddress", "ip"},
	}
	for _, tc := range cases {
		if got := normalizeRestoreColumnName(tc.table, tc.in); got != tc.want {
			t.Errorf("normalizeRestoreColumnName(%q, %q) = %q, want %q", tc.table, tc.in, got, tc.want)
		}
	}
}

func TestParseArchiveEntry(t *testing.T) {
	cases := []struct {
		name       string
		wantTable  string
		wantFormat string
		wantOK     bool
	}{
		{"clauselens/db/analyses.json", "analyses", "json", true},
		{"dump/clauselens/analysisResults.bson", "analysisresults", "bson", true},
		{"clauselens/manifest.json", "", "", false},
		{"dump/analyses.metadata.json", "", "", false},
		{"readme.txt", "", "", false},
	}
	for _, tc := range cases {
		table, format, ok := parseArchiveEntry(tc.name)
		if table != tc.wantTable || format != tc.wantFormat || ok != tc.wantOK {
			t.Errorf("parseArchiveEntry(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tc.name, table, format, ok, tc.wantTable, tc.wantFormat, tc.wantOK)
		}
	}
}

func TestDecodeBSONRows(t *testing.T) {
	doc1, err := bson.Marshal(bson.M{"name": "first", "score": int32(7)})
	if err != nil {
		t.Fatal(err)
	}
	doc2, err := bson.Marshal(bson.M{"name": "second"})
	if err != nil {
		t.Fatal(err)
	}

	rows, err := decodeBSONRows(append(doc1, doc2...))
	if err != nil {
		t.Fatalf("decodeBSONRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["name"] != "first" || rows[1]["name"] != "second" {
		t.Errorf("unexpected rows: %v", rows)
	}

	if _, err := decodeBSONRows([]byte{0x01, 0x02}); err == nil {
		t.Error("expected error for truncated payload")
	}
	empty, err := decodeBSONRows(nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("empty payload should yield no rows, got %v, %v", empty, err)
	}
}

func TestNormalizeBSONValue(t *testing.T) {
	oid := primitive.NewObjectID()
	if got := normalizeBSONValue(oid); got != oid.Hex() {
		t.Errorf("ObjectID should become hex string, got %v", got)
	}

	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	if got := normalizeBSONValue(primitive.NewDateTimeFromTime(at)); !got.(time.Time).Equal(at) {
		t.Errorf("DateTime should become time.Time, got %v", got)
	}

	nested := normalizeBSONValue(primitive.D{
		{Key: "inner", Value: primitive.A{primitive.Null{}, int32(3)}},
	})
	m, ok := nested.(map[string]interface{})
	if !ok {
		t.Fatalf("expected map, got %T", nested)
	}
	arr := m["inner"].([]interface{})
	if arr[0] != nil || arr[1] != int32(3) {
		t.Errorf("unexpected nested normalization: %v", arr)
	}
}

func TestNormalizeRestoreValueTimeColumns(t *testing.T) {
	at := time.Date(2025, 11, 2, 8, 0, 0, 0, time.UTC)

	got, ok := normalizeRestoreValue("created_at", at.Format(time.RFC3339), "DATETIME")
	if !ok {
		t.Fatal("RFC3339 string should be accepted for a time column")
	}
	if ts := got.(time.Time); !ts.Equal(at) {
		t.Errorf("got %v, want %v", ts, at)
	}

	got, ok = normalizeRestoreValue("created_at", float64(at.UnixMilli()), "DATETIME")
	if !ok || !got.(time.Time).Equal(at) {
		t.Errorf("unix millis should parse, got %v ok=%v", got, ok)
	}

	got, ok = normalizeRestoreValue("updated_at", "not-a-date", "DATETIME")
	if !ok || got != nil {
		t.Errorf("unparseable updated_at should become NULL, got %v ok=%v", got, ok)
	}

	if _, ok := normalizeRestoreValue("created_at", "not-a-date", "DATETIME"); ok {
		t.Error("unparseable created_at should be dropped")
	}
}

func TestNormalizeRestoreValueJSONColumns(t *testing.T) {
	got, ok := normalizeRestoreValue("response", map[string]interface{}{"q1": "a"}, "JSON")
	if !ok {
		t.Fatal("maps should serialize into JSON columns")
	}
	if got != `{"q1":"a"}` {
		t.Errorf("got %q", got)
	}

	if _, ok := normalizeRestoreValue("score", map[string]interface{}{"x": 1}, "DOUBLE"); ok {
		t.Error("map into a numeric column should be dropped")
	}
}

func TestRenderObjectKey(t *testing.T) {
	now := time.Date(2026, 8, 27, 14, 5, 9, 0, time.UTC)

	got := renderObjectKey("archives/{Y}/{m}/{filename}", "archive-a.zip", now)
	if got != "archives/2026/08/archive-a.zip" {
		t.Errorf("got %q", got)
	}

	got = renderObjectKey("backups/{Y}{m}{d}-{h}{i}{s}.zip", "ignored.zip", now)
	if got != "backups/20260827-140509.zip" {
		t.Errorf("got %q", got)
	}

	got = renderObjectKey("", "archive-b.zip", now)
	if got != "archives/2026/08/archive-b.zip" {
		t.Errorf("empty template should fall back to default, got %q", got)
	}
}

func TestNormalizeObjectKey(t *testing.T) {
	if got := normalizeObjectKey("//a\\b//c.zip"); got != "a/b/c.zip" {
		t.Errorf("got %q", got)
	}
}

func TestFormatSize(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.00 KB"},
		{3 << 20, "3.00 MB"},
	}
	for _, tc := range cases {
		if got := formatSize(tc.in); got != tc.want {
			t.Errorf("formatSize(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMapLegacyOptionToConfigSection(t *testing.T) {
	cases := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"mailOptions", "mail_options", true},
		{"backupOptions", "archive_options", true},
		{"s3Options", "s3_options", true},
		{"seo", "", false},
	}
	for _, tc := range cases {
		got, ok := mapLegacyOptionToConfigSection(tc.in)
		if got != tc.want || ok != tc.wantOK {
			t.Errorf("mapLegacyOptionToConfigSection(%q) = (%q, %v), want (%q, %v)",
				tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}
