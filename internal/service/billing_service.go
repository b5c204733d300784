package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mautops/timesheet-gin/internal/model"
	"github.com/mautops/timesheet-gin/internal/repository"
	"gorm.io/gorm"
)

// BillingService 计费聚合引擎
// 对已冻结(approved)工时单的纯读侧聚合,按 (project, user) 汇总
// 计费工时和金额,不修改任何记录
type BillingService interface {
	Aggregate(ctx context.Context, filter *BillingFilter) ([]*BillingLine, error)
}

// BillingFilter 计费聚合过滤条件
type BillingFilter struct {
	From      time.Time // 条目日期下界(含)
	To        time.Time // 条目日期上界(含)
	ProjectID string    // 可选,限定单个项目
	UserID    string    // 可选,限定单个用户
}

// BillingLine 计费聚合输出行
// @Description 按 (项目, 用户) 汇总的计费结果
type BillingLine struct {
	ProjectID     string  `json:"project_id"`     // 项目 ID,空串表示非项目工时
	ProjectName   string  `json:"project_name"`   // 项目名称
	UserID        string  `json:"user_id"`        // 用户 ID
	UserName      string  `json:"user_name"`      // 用户名称
	TotalHours    float64 `json:"total_hours"`    // 总工时
	BillableHours float64 `json:"billable_hours"` // 计费工时
	Amount        float64 `json:"amount"`         // 金额 = Σ(计费工时 × 条目日期生效费率)
	Currency      string  `json:"currency"`       // 币种
}

// billingService 计费聚合引擎实现
type billingService struct {
	db       *gorm.DB
	rateRepo repository.BillingRateRepository
}

// NewBillingService 创建计费聚合引擎
func NewBillingService(db *gorm.DB, rateRepo repository.BillingRateRepository) BillingService {
	return &billingService{
		db:       db,
		rateRepo: rateRepo,
	}
}

// Aggregate 按过滤条件聚合计费工时
// 只读取 approved/frozen 工时单;软删除条目由查询自动排除;
// 属主用户已不存在的工时单属于孤儿数据,直接跳过(由修复程序清理);
// 条目引用的项目或计费条目缺少费率时返回 AggregationError
func (s *billingService) Aggregate(ctx context.Context, filter *BillingFilter) ([]*BillingLine, error) {
	if filter == nil {
		filter = &BillingFilter{}
	}

	// 1. 选出范围内的已冻结工时单
	query := s.db.Model(&model.TimesheetModel{}).Where("status = ?", model.TimesheetApproved)
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if !filter.From.IsZero() {
		query = query.Where("week_end_date >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where("week_start_date <= ?", filter.To)
	}
	var sheets []*model.TimesheetModel
	if err := query.Find(&sheets).Error; err != nil {
		return nil, fmt.Errorf("failed to load frozen timesheets: %w", err)
	}
	if len(sheets) == 0 {
		return []*BillingLine{}, nil
	}

	// 2. 过滤孤儿工时单(属主用户已被删除)
	userIDs := make([]string, 0, len(sheets))
	seenUser := make(map[string]bool)
	for _, ts := range sheets {
		if !seenUser[ts.UserID] {
			seenUser[ts.UserID] = true
			userIDs = append(userIDs, ts.UserID)
		}
	}
	var userList []*model.UserModel
	if err := s.db.Where("id IN ?", userIDs).Find(&userList).Error; err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	users := make(map[string]*model.UserModel, len(userList))
	for _, u := range userList {
		users[u.ID] = u
	}

	sheetOwner := make(map[string]string, len(sheets))
	timesheetIDs := make([]string, 0, len(sheets))
	for _, ts := range sheets {
		if _, ok := users[ts.UserID]; !ok {
			continue
		}
		sheetOwner[ts.ID] = ts.UserID
		timesheetIDs = append(timesheetIDs, ts.ID)
	}
	if len(timesheetIDs) == 0 {
		return []*BillingLine{}, nil
	}

	// 3. 加载条目(软删除自动排除)
	entryQuery := s.db.Where("timesheet_id IN ?", timesheetIDs)
	if filter.ProjectID != "" {
		entryQuery = entryQuery.Where("project_id = ?", filter.ProjectID)
	}
	if !filter.From.IsZero() {
		entryQuery = entryQuery.Where("entry_date >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		entryQuery = entryQuery.Where("entry_date <= ?", filter.To)
	}
	var entries []*model.TimeEntryModel
	if err := entryQuery.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}

	// 4. 解析引用的项目
	projectIDSet := make(map[string]bool)
	for _, e := range entries {
		if key := e.ProjectKey(); key != model.NonProjectKey {
			projectIDSet[key] = true
		}
	}
	projects := make(map[string]*model.ProjectModel, len(projectIDSet))
	if len(projectIDSet) > 0 {
		ids := make([]string, 0, len(projectIDSet))
		for id := range projectIDSet {
			ids = append(ids, id)
		}
		var projectList []*model.ProjectModel
		if err := s.db.Where("id IN ?", ids).Find(&projectList).Error; err != nil {
			return nil, fmt.Errorf("failed to load projects: %w", err)
		}
		for _, p := range projectList {
			projects[p.ID] = p
		}
	}

	// 5. 按 (project, user) 聚合并计算金额
	lines := make(map[string]*BillingLine)
	rateCache := make(map[string]*model.BillingRateModel)
	for _, e := range entries {
		userID, ok := sheetOwner[e.TimesheetID]
		if !ok {
			continue
		}
		projectKey := e.ProjectKey()
		if projectKey != model.NonProjectKey {
			if _, ok := projects[projectKey]; !ok {
				return nil, NewAggregationError("project", projectKey,
					"entry references a project that cannot be resolved")
			}
		}

		groupKey := projectKey + "|" + userID
		line, ok := lines[groupKey]
		if !ok {
			line = &BillingLine{ProjectID: projectKey, UserID: userID, UserName: users[userID].Name}
			if p, ok := projects[projectKey]; ok {
				line.ProjectName = p.Name
			}
			lines[groupKey] = line
		}

		line.TotalHours += e.Hours
		if !e.IsBillable {
			continue
		}
		line.BillableHours += e.Hours

		rate, err := s.lookupRate(rateCache, userID, projectKey, e.EntryDate)
		if err != nil {
			return nil, err
		}
		// 同一 (项目, 用户) 行内币种必须一致,跨币种金额不可相加
		if line.Currency != "" && line.Currency != rate.Currency {
			return nil, NewAggregationError("billing rate", rate.ID,
				fmt.Sprintf("mixed currencies %s and %s for user %s on project %q",
					line.Currency, rate.Currency, userID, projectKey))
		}
		line.Amount += e.Hours * rate.HourlyRate
		line.Currency = rate.Currency
	}

	result := make([]*BillingLine, 0, len(lines))
	for _, line := range lines {
		result = append(result, line)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ProjectID != result[j].ProjectID {
			return result[i].ProjectID < result[j].ProjectID
		}
		return result[i].UserID < result[j].UserID
	})
	return result, nil
}

// lookupRate 带缓存的费率查询,同一 (user, project, date) 只查一次
func (s *billingService) lookupRate(cache map[string]*model.BillingRateModel, userID, projectKey string, date time.Time) (*model.BillingRateModel, error) {
	cacheKey := fmt.Sprintf("%s|%s|%s", userID, projectKey, date.Format("2006-01-02"))
	if rate, ok := cache[cacheKey]; ok {
		return rate, nil
	}
	rate, err := s.rateRepo.EffectiveRate(userID, projectKey, date)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewAggregationError("billing rate", userID,
				fmt.Sprintf("no hourly rate effective on %s for user %s", date.Format("2006-01-02"), userID))
		}
		return nil, fmt.Errorf("failed to look up billing rate: %w", err)
	}
	cache[cacheKey] = rate
	return rate, nil
}
