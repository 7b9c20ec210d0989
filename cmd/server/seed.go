package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/quillpost/internal/db"
	"github.com/quillpost/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill an empty database with demo users, posts and comments",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), "开始生成测试数据...")
		report, err := seedDemoData(db.DB, time.Now())
		if err != nil {
			return err
		}
		if report.skipped {
			fmt.Fprintln(cmd.OutOrStdout(), "已存在文章，跳过生成")
			return nil
		}
		log.Info("demo data created", zap.Int("users", report.users), zap.Int("posts", report.posts), zap.Int("comments", report.comments))
		fmt.Fprintln(cmd.OutOrStdout(), "测试数据生成完成！")
		fmt.Fprintln(cmd.OutOrStdout(), "管理员: admin (密码: admin123)")
		fmt.Fprintln(cmd.OutOrStdout(), "读者: reader (密码: reader123)")
		return nil
	},
}

type seedReport struct {
	skipped  bool
	users    int
	posts    int
	comments int
}

type seedUser struct {
	username string
	password string
	email    string
	admin    bool
}

var demoUsers = []seedUser{
	{username: "admin", password: "admin123", email: "admin@quillpost.local", admin: true},
	{username: "reader", password: "reader123", email: "reader@quillpost.local"},
}

type seedPost struct {
	title   string
	body    string
	daysAgo int
}

var demoPosts = []seedPost{
	{title: "welcome to quillpost", body: "This is the first post.\nEvery line break is kept.\n\nA blank line starts a new paragraph.", daysAgo: 0},
	{title: "writing in markdown", body: "Posts support **markdown**, including [links](https://commonmark.org) and lists:\n\n- one\n- two", daysAgo: 2},
	{title: "a week of notes", body: "Short notes collected during the week.", daysAgo: 5},
	{title: "older thoughts", body: "This post is older than a week, so it only shows up in the full list.", daysAgo: 9},
	{title: "the archive", body: "The oldest demo post.", daysAgo: 20},
}

// seedDemoData 在没有文章时写入演示数据，已有文章则跳过。
func seedDemoData(gdb *gorm.DB, now time.Time) (seedReport, error) {
	var report seedReport

	var existing int64
	if err := gdb.Model(&db.Post{}).Count(&existing).Error; err != nil {
		return report, err
	}
	if existing > 0 {
		report.skipped = true
		return report, nil
	}

	err := gdb.Transaction(func(tx *gorm.DB) error {
		users := make(map[string]*db.User, len(demoUsers))
		for _, seed := range demoUsers {
			user := &db.User{}
			err := tx.Where("username = ?", seed.username).First(user).Error
			switch {
			case err == nil:
			case errors.Is(err, gorm.ErrRecordNotFound):
				hashed, err := bcrypt.GenerateFromPassword([]byte(seed.password), bcrypt.DefaultCost)
				if err != nil {
					return err
				}
				user = &db.User{Username: seed.username, Email: seed.email, Password: string(hashed), IsAdmin: seed.admin}
				if err := tx.Create(user).Error; err != nil {
					return fmt.Errorf("create user %s: %w", seed.username, err)
				}
				report.users++
			default:
				return err
			}
			users[seed.username] = user
		}

		posts := make([]*db.Post, 0, len(demoPosts))
		for _, seed := range demoPosts {
			post := &db.Post{
				Title:   service.TitleCase(seed.title),
				Slug:    service.Slugify(seed.title),
				Body:    seed.body,
				Created: now.AddDate(0, 0, -seed.daysAgo),
			}
			if err := tx.Create(post).Error; err != nil {
				return fmt.Errorf("create post %q: %w", seed.title, err)
			}
			posts = append(posts, post)
			report.posts++
		}

		first := posts[0]
		readerID := users["reader"].ID
		adminID := users["admin"].ID

		question := &db.Comment{PostID: first.ID, UserID: &readerID, Content: "Nice start! Will there be an RSS feed?", Created: now.Add(-2 * time.Hour)}
		if err := tx.Create(question).Error; err != nil {
			return err
		}
		answer := &db.Comment{PostID: first.ID, UserID: &adminID, ParentID: &question.ID, Content: "Not yet, but it is on the list.", Created: now.Add(-time.Hour)}
		if err := tx.Create(answer).Error; err != nil {
			return err
		}
		guest := &db.Comment{PostID: first.ID, Guestname: "passerby", Content: "Found this via a friend, looks good.", Created: now.Add(-30 * time.Minute)}
		if err := tx.Create(guest).Error; err != nil {
			return err
		}
		report.comments = 3
		return nil
	})
	if err != nil {
		return seedReport{}, err
	}
	return report, nil
}
