package warm

import (
	"context"
	"os"
	"strconv"
	"time"

	"bansos-api/internal/logger"
)

// nextMondayAt：计算 now 之后下一次周一指定小时的时间点（不含当前已过时的当周）
// 约束：基于传入时区 loc 与整点 hour；仅前推至未来时间
func nextMondayAt(now time.Time, loc *time.Location, hour int) time.Time {
	now = now.In(loc)
	for i := 0; i <= 7; i++ {
		d := now.AddDate(0, 0, i)
		if d.Weekday() == time.Monday {
			t := time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, loc)
			if t.After(now) {
				return t
			}
		}
	}
	d := now.AddDate(0, 0, 7)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, loc)
}

// StartWeeklyJakarta：在西印尼时间（Asia/Jakarta）每周一 2:00 刷新缓存中的地区列表
// 背景：地区数据极少变动，但缓存 TTL 到期后的首批请求会集中打到上游；定期刷新将其平滑
// 约束：可使用 REGION_WARM_HOUR 覆盖小时；错误由日志记录，任务继续调度；ctx 取消后退出
func StartWeeklyJakarta(ctx context.Context, r Refresher, opt Options) {
	l := logger.L()
	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		loc = time.FixedZone("WIB", 7*3600)
	}
	hour := 2
	if h := os.Getenv("REGION_WARM_HOUR"); h != "" {
		if n, err := strconv.Atoi(h); err == nil && n >= 0 && n < 24 {
			hour = n
		}
	}
	next := nextMondayAt(time.Now(), loc, hour)
	go func() {
		for {
			t := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
			l.Info("warm_start", "next", next)
			if _, err := Run(ctx, r, opt); err != nil {
				l.Error("warm_error", "err", err)
			}
			next = next.AddDate(0, 0, 7)
		}
	}()
}
