package archive

import (
	"archive/zip"
	"bytes"
	"time"

	"github.com/clauselens/core/internal/modules/system/core/configs"
	"gorm.io/gorm"
)

const archiveRootDir = "clauselens"
const archiveDBDir = archiveRootDir + "/db"
const archiveManifestFile = archiveRootDir + "/manifest.json"
const archiveFormat = "clauselens-archive-json"
const archiveFormatVersion = 1
const defaultS3KeyTemplate = "archives/{Y}/{m}/{filename}"

// EnvArchiveDir overrides the local archive directory.
const EnvArchiveDir = "CL_ARCHIVE_DIR"

// archiveTableNames lists the tables included in an export, in restore order
// (referenced tables before referencing ones).
var archiveTableNames = []string{
	"users",
	"user_identities",
	"user_sessions",
	"api_tokens",
	"passkey_credentials",
	"personalization_profiles",
	"documents",
	"analyses",
	"alert_rules",
	"alert_events",
	"webhooks",
	"webhook_events",
	"activities",
	"request_logs",
	"options",
}

var archiveTableNameSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(archiveTableNames))
	for _, table := range archiveTableNames {
		set[table] = struct{}{}
	}
	return set
}()

// restoreTableAliases maps collection names found in legacy ClauseLens Mongo
// exports onto this schema's table names.
var restoreTableAliases = map[string]string{
	"personalizationprofiles": "personalization_profiles",
	"profiles":                "personalization_profiles",
	"analysisresults":         "analyses",
	"analysisrecords":         "analyses",
	"alertrules":              "alert_rules",
	"alertevents":             "alert_events",
	"alerthistory":            "alert_events",
	"sessions":                "user_sessions",
	"apitokens":               "api_tokens",
	"identities":              "user_identities",
	"useridentities":          "user_identities",
	"passkeys":                "passkey_credentials",
	"webhookevents":           "webhook_events",
	"requestlogs":             "request_logs",
}

// restoreColumnAliases covers legacy field names that camelToSnake alone does
// not produce.
var restoreColumnAliases = map[string]string{
	"_id":       "id",
	"created":   "created_at",
	"modified":  "updated_at",
	"createdat": "created_at",
	"updatedat": "updated_at",
	"userid":    "user_id",
	"ipaddress": "ip",
	"useragent": "ua",
	"hook":      "hook_id",
	"document":  "document_id",
	"analysis":  "analysis_id",
	"rule":      "rule_id",
}

var restoreColumnAliasesByTable = map[string]map[string]string{
	"users": {
		"passwordhash":  "password",
		"password_hash": "password",
	},
	"documents": {
		"url":     "source_url",
		"content": "text",
	},
	"personalization_profiles": {
		"rawresponse":   "response",
		"questionnaire": "response",
	},
}

// legacyOptionKeyAliases maps legacy per-section option rows onto FullConfig
// section keys, so an old deployment's settings survive an import.
var legacyOptionKeyAliases = map[string]string{
	"extension":       "extension",
	"url":             "url",
	"mailoptions":     "mail_options",
	"analysisoptions": "analysis_options",
	"alertoptions":    "alert_options",
	"archiveoptions":  "archive_options",
	"backupoptions":   "archive_options",
	"s3options":       "s3_options",
	"barkoptions":     "bark_options",
	"authsecurity":    "auth_security",
	"featurelist":     "feature_list",
	"ai":              "ai",
}

// Service creates, stores, restores and ships archives.
type Service struct {
	db     *gorm.DB
	cfgSvc *configs.Service
}

type manifest struct {
	Format    string    `json:"format"`
	Version   int       `json:"version"`
	Engine    string    `json:"engine"`
	CreatedAt time.Time `json:"created_at"`
	Tables    []string  `json:"tables"`
}

// Artifact is one archive written to the local archive directory.
type Artifact struct {
	Filename string
	Path     string
	Buffer   *bytes.Buffer
}

// Item is the list view of a stored archive.
type Item struct {
	Filename string `json:"filename"`
	Size     string `json:"size"`
}

type entryCandidate struct {
	file   *zip.File
	format string
}

type tableColumn struct {
	DBType string
}
