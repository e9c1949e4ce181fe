package configs

import "errors"

const configKey = "configs"

const emailTemplateKeyPrefix = "email_template_"

var errReportsProviderNotEnabled = errors.New("no enabled ai provider for reports")
