package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/clauselens/core/internal/config"
	"github.com/clauselens/core/internal/models"
	"github.com/clauselens/core/internal/modules/analysis/aggregate"
	"github.com/clauselens/core/internal/modules/archive"
	"github.com/clauselens/core/internal/modules/personalization"
	appconfigs "github.com/clauselens/core/internal/modules/system/core/configs"
	pkgcron "github.com/clauselens/core/internal/pkg/cron"
	"github.com/clauselens/core/internal/pkg/mail"
	pkgredis "github.com/clauselens/core/internal/pkg/redis"
	"github.com/clauselens/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, db *gorm.DB, runtimeCfg *config.AppConfig, rc *pkgredis.Client, logger *zap.Logger) {
	cfgSvc := appconfigs.NewService(db)
	profileSvc := personalization.NewService(db)
	archiveSvc := archive.NewService(db, cfgSvc)
	taskSvc := taskqueue.NewService(rc)
	cronLogger := logger.Named("cron")

	sched.Register(pkgcron.Job{
		Name:        "recompute_stale_profiles",
		Description: "recompute profiles computed with an outdated factor table version",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			report, err := profileSvc.RecomputeStale()
			if err != nil {
				cronLogger.Warn("stale profile recompute failed", zap.Error(err))
				return err
			}
			cronLogger.Info("stale profile recompute finished",
				zap.Int("recomputed", report.Recomputed),
				zap.Int("failed", report.Failed))
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "purge_expired_sessions",
		Description: "delete expired and revoked login sessions",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			result := db.Where("expires_at < ? OR revoked_at IS NOT NULL", time.Now()).
				Unscoped().Delete(&models.UserSession{})
			if result.Error != nil {
				cronLogger.Warn("session purge failed", zap.Error(result.Error))
				return result.Error
			}
			cronLogger.Info(fmt.Sprintf("purged %d expired sessions", result.RowsAffected))
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "cleanup_finished_tasks",
		Description: "drop finished queue tasks older than a day",
		Interval:    time.Hour,
		Fn: func(ctx context.Context) error {
			before := time.Now().Add(-24 * time.Hour).UnixMilli()
			if err := taskSvc.DeleteCompleted(ctx, before); err != nil {
				cronLogger.Warn("task cleanup failed", zap.Error(err))
				return err
			}
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "rotate_archives",
		Description: "create a fresh archive and trim old local ones",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			cfg, err := cfgSvc.Get()
			if err != nil {
				return err
			}
			if !cfg.ArchiveOptions.Enable {
				return nil
			}

			now := time.Now()
			artifact, err := archiveSvc.CreateLocal(now)
			if err != nil {
				cronLogger.Warn("archive creation failed", zap.Error(err))
				return err
			}
			cronLogger.Info("archive created", zap.String("filename", artifact.Filename))

			if cfg.S3Options.Bucket != "" {
				if key, err := archiveSvc.UploadS3(ctx, artifact, now); err != nil {
					cronLogger.Warn("archive upload failed", zap.Error(err))
				} else {
					cronLogger.Info("archive uploaded", zap.String("key", key))
				}
			}

			keep := cfg.ArchiveOptions.KeepCount
			if keep < 1 {
				keep = 7
			}
			if removed := archiveSvc.Rotate(keep); removed > 0 {
				cronLogger.Info(fmt.Sprintf("rotated out %d old archives", removed))
			}
			return nil
		},
	})

	digest := &digestState{}
	sched.Register(pkgcron.Job{
		Name:        "daily_alert_digest",
		Description: "mail users a daily digest of high-risk analyses and triggered alerts",
		Interval:    time.Hour,
		Fn: func(ctx context.Context) error {
			return digest.run(db, cfgSvc, cronLogger, time.Now())
		},
	})
}

// digestState dedupes the hourly digest tick down to one send per day at the
// configured hour.
type digestState struct {
	mu       sync.Mutex
	lastDate string
}

func (d *digestState) run(db *gorm.DB, cfgSvc *appconfigs.Service, logger *zap.Logger, now time.Time) error {
	cfg, err := cfgSvc.Get()
	if err != nil {
		return err
	}
	if !cfg.FeatureList.DailyDigest || !cfg.MailOptions.Enable {
		return nil
	}
	if now.Hour() != cfg.AlertOptions.DigestHour {
		return nil
	}

	today := now.Format("2006-01-02")
	d.mu.Lock()
	if d.lastDate == today {
		d.mu.Unlock()
		return nil
	}
	d.lastDate = today
	d.mu.Unlock()

	since := now.Add(-24 * time.Hour)
	sender := mail.New(mail.BuildMailConfig(cfg))
	sender.Overrides = cfgSvc.EmailTemplateOverride

	var users []models.UserModel
	if err := db.Where("mail <> ''").Find(&users).Error; err != nil {
		return err
	}

	sent := 0
	for _, user := range users {
		var analyses []models.AnalysisModel
		if err := db.Where("user_id = ? AND status = ? AND finished_at >= ?",
			user.ID, models.AnalysisStatusDone, since).
			Order("overall_score DESC").
			Find(&analyses).Error; err != nil {
			continue
		}

		var alertCount int64
		db.Model(&models.AlertEventModel{}).
			Where("user_id = ? AND created_at >= ?", user.ID, since).
			Count(&alertCount)

		if len(analyses) == 0 && alertCount == 0 {
			continue
		}

		items := make([]mail.DigestItem, 0, len(analyses))
		for _, a := range analyses {
			if a.RiskLevel != string(aggregate.RiskHigh) && a.RiskLevel != string(aggregate.RiskMedium) {
				continue
			}
			items = append(items, mail.DigestItem{
				Title:     digestTitle(db, a.DocumentID),
				RiskLevel: a.RiskLevel,
				Score:     a.OverallScore,
			})
			if len(items) >= 10 {
				break
			}
		}

		data := mail.DailyDigestData{
			ProductName:   cfg.Extension.ProductName,
			Date:          today,
			AnalysisCount: len(analyses),
			AlertCount:    int(alertCount),
			Items:         items,
			DashboardURL:  cfg.URL.WebURL,
		}
		if err := sender.SendDailyDigest(user.Mail, data); err != nil {
			logger.Warn("digest send failed", zap.String("user", user.ID), zap.Error(err))
			continue
		}
		sent++
	}
	if sent > 0 {
		logger.Info(fmt.Sprintf("daily digest sent to %d users", sent))
	}
	return nil
}

func digestTitle(db *gorm.DB, documentID string) string {
	var doc models.DocumentModel
	if err := db.Select("title").First(&doc, "id = ?", documentID).Error; err != nil {
		return "Untitled document"
	}
	return doc.Title
}
