package service

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"studyplanner_backend/internal/model"
	"studyplanner_backend/internal/repository"
	"studyplanner_backend/internal/util"
	"studyplanner_backend/pkg/logger"
	"studyplanner_backend/pkg/monitoring"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 排期引擎参数
const (
	minimumDailyFloor  = 120 // 最低档下限（分钟/天）
	customDailyCeiling = 960 // 自定义档上限，16小时

	maxPYQSessionMinutes = 180 // 单次真题训练上限

	dayOverflowFactor     = 1.1 // 单日软上限系数
	subjectSwitchFraction = 0.7 // 跨科目提前收day的占比阈值
	subjectSwitchFloor    = 60  // 跨科目提前收day的最低分钟数

	scheduleWriteBatchSize = 100
	targetWriteRetries     = 3
	targetRetryBaseDelay   = 100 * time.Millisecond
)

// DailyTargets 四档每日学习目标（分钟）
type DailyTargets struct {
	Minimum  int `json:"minimum"`
	Moderate int `json:"moderate"`
	Maximum  int `json:"maximum"`
	Custom   int `json:"custom"`
}

// StudyPlan 目标计算结果
// swagger:model StudyPlan
type StudyPlan struct {
	DaysRemaining         int          `json:"daysRemaining"`
	TotalRemainingMinutes int          `json:"totalRemainingMinutes"`
	DailyTargets          DailyTargets `json:"dailyTargets"`
	SelectedPlan          string       `json:"selectedPlan"`
}

// DaySchedule 排期结果中的一天
// swagger:model DaySchedule
type DaySchedule struct {
	Date                   time.Time             `json:"date"`
	PlannedSessions        []model.ScheduleEntry `json:"plannedSessions"`
	TotalPlannedDuration   int                   `json:"totalPlannedDuration"`
	TotalCompletedDuration int                   `json:"totalCompletedDuration"`
}

// studyItem 一次生成过程中的待排学习单元，仅存在于内存
type studyItem struct {
	SubjectID   uint
	SubjectName string
	ModuleID    uint
	ModuleName  string
	ItemID      uint
	Name        string
	Type        model.ContentType
	Duration    int
	Priority    int
}

// progressKey 完成记录的复合键；整块真题使用 ModuleID=0、ItemID=0、Type=pyq
type progressKey struct {
	SubjectID uint
	ModuleID  uint
	ItemID    uint
	Type      model.ContentType
}

// SchedulerService 自适应排期引擎：目标计算、待排收集、逐日装箱与落库
type SchedulerService struct {
	UserRepo     *repository.UserRepository
	SubjectRepo  *repository.SubjectRepository
	ProgressRepo *repository.ProgressRepository
	ScheduleRepo *repository.ScheduleRepository
	Locks        *ScheduleLockManager
	DefaultDays  int
}

func NewSchedulerService(
	userRepo *repository.UserRepository,
	subjectRepo *repository.SubjectRepository,
	progressRepo *repository.ProgressRepository,
	scheduleRepo *repository.ScheduleRepository,
	locks *ScheduleLockManager,
	defaultDays int,
) *SchedulerService {
	if defaultDays <= 0 {
		defaultDays = 30
	}
	return &SchedulerService{
		UserRepo:     userRepo,
		SubjectRepo:  subjectRepo,
		ProgressRepo: progressRepo,
		ScheduleRepo: scheduleRepo,
		Locks:        locks,
		DefaultDays:  defaultDays,
	}
}

// CalculateStudyPlans 计算并持久化四档每日目标。公开入口自行加锁；
// 排期生成内部走 calculateStudyPlansLocked 避免自我死锁。
func (s *SchedulerService) CalculateStudyPlans(userID uint) (*StudyPlan, error) {
	if !s.Locks.Acquire(userID) {
		age, _ := s.Locks.Age(userID)
		return nil, &util.ScheduleBusyError{Age: age}
	}
	defer s.Locks.Release(userID)

	return s.calculateStudyPlansLocked(userID)
}

func (s *SchedulerService) calculateStudyPlansLocked(userID uint) (*StudyPlan, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	if user.ExamDeadline == nil {
		return nil, util.ErrNoDeadline
	}

	daysRemaining := int(math.Ceil(time.Until(*user.ExamDeadline).Hours() / 24))
	if daysRemaining < 1 {
		daysRemaining = 1
	}

	subjects, _, err := s.selectedSubjects(userID)
	if err != nil {
		return nil, err
	}

	completed, err := s.completedKeys(userID)
	if err != nil {
		return nil, err
	}

	totalRemaining := 0
	for i := range subjects {
		totalRemaining += remainingMinutes(&subjects[i], completed)
	}

	minimum := util.CeilDiv(totalRemaining, daysRemaining)
	if minimum < minimumDailyFloor {
		minimum = minimumDailyFloor
	}
	moderate := minimum + 60
	maximum := minimum + 120

	custom := user.TargetCustom
	if custom <= 0 {
		custom = minimum + 60
	}
	if custom < minimum {
		custom = minimum
	}
	if custom > customDailyCeiling {
		custom = customDailyCeiling
	}

	targets := DailyTargets{
		Minimum:  minimum,
		Moderate: moderate,
		Maximum:  maximum,
		Custom:   custom,
	}

	if err := s.persistTargets(userID, targets); err != nil {
		return nil, err
	}

	return &StudyPlan{
		DaysRemaining:         daysRemaining,
		TotalRemainingMinutes: totalRemaining,
		DailyTargets:          targets,
		SelectedPlan:          user.SelectedPlan,
	}, nil
}

// persistTargets 窄更新写入四档目标，冲突时按 100ms×尝试次数退避重试
func (s *SchedulerService) persistTargets(userID uint, targets DailyTargets) error {
	fields := map[string]interface{}{
		"target_minimum":  targets.Minimum,
		"target_moderate": targets.Moderate,
		"target_maximum":  targets.Maximum,
		"target_custom":   targets.Custom,
	}

	var err error
	for attempt := 1; attempt <= targetWriteRetries; attempt++ {
		err = s.UserRepo.UpdateFields(userID, fields)
		if err == nil {
			return nil
		}
		logger.Log.Warn("daily target write failed, retrying",
			zap.Uint("userId", userID),
			zap.Int("attempt", attempt),
			zap.Error(err))
		time.Sleep(targetRetryBaseDelay * time.Duration(attempt))
	}
	return err
}

// GenerateSchedule 生成从 startDate 起最多 days 天的学习排期并落库。
// 未选择任何科目时返回空结果而非错误。
func (s *SchedulerService) GenerateSchedule(userID uint, startDate time.Time, days int) ([]DaySchedule, error) {
	if days <= 0 {
		days = s.DefaultDays
	}

	if !s.Locks.Acquire(userID) {
		age, _ := s.Locks.Age(userID)
		monitoring.ScheduleGenerations.WithLabelValues("busy").Inc()
		return nil, &util.ScheduleBusyError{Age: age}
	}
	defer s.Locks.Release(userID)

	result, err := s.generateLocked(userID, startDate, days)
	if err != nil {
		monitoring.ScheduleGenerations.WithLabelValues("error").Inc()
		return nil, err
	}
	monitoring.ScheduleGenerations.WithLabelValues("success").Inc()
	return result, nil
}

func (s *SchedulerService) generateLocked(userID uint, startDate time.Time, days int) ([]DaySchedule, error) {
	// 先用内部（不加锁）路径刷新每日目标
	plan, err := s.calculateStudyPlansLocked(userID)
	if err != nil {
		return nil, err
	}

	dailyTarget := resolveDailyTarget(plan.SelectedPlan, plan.DailyTargets)

	subjects, priorities, err := s.selectedSubjects(userID)
	if err != nil {
		return nil, err
	}
	// 未选择任何科目：返回空排期而非报错
	if len(priorities) == 0 {
		return []DaySchedule{}, nil
	}

	completed, err := s.completedKeys(userID)
	if err != nil {
		return nil, err
	}

	backlog := collectStudyItems(subjects, priorities, completed)
	startDay := util.StartOfDay(startDate)

	schedule := packDays(userID, backlog, startDay, days, dailyTarget)

	if err := s.persistSchedule(userID, startDay, schedule); err != nil {
		return nil, err
	}

	return schedule, nil
}

// resolveDailyTarget 按所选档位取每日目标，无效时依次回退 moderate、minimum、120
func resolveDailyTarget(selectedPlan string, targets DailyTargets) int {
	var target int
	switch selectedPlan {
	case model.PlanMinimum:
		target = targets.Minimum
	case model.PlanModerate:
		target = targets.Moderate
	case model.PlanMaximum:
		target = targets.Maximum
	case model.PlanCustom:
		target = targets.Custom
	}

	if target <= 0 {
		target = targets.Moderate
	}
	if target <= 0 {
		target = targets.Minimum
	}
	if target <= 0 {
		target = minimumDailyFloor
	}
	return target
}

// selectedSubjects 返回用户选择的科目（未选择时为全部科目）及优先级表
func (s *SchedulerService) selectedSubjects(userID uint) ([]model.Subject, map[uint]int, error) {
	selected, err := s.UserRepo.GetUserSubjects(userID)
	if err != nil {
		return nil, nil, err
	}

	priorities := make(map[uint]int, len(selected))
	for _, us := range selected {
		priorities[us.SubjectID] = us.Priority
	}

	var subjects []model.Subject
	if len(selected) == 0 {
		subjects, err = s.SubjectRepo.FindAll()
	} else {
		ids := make([]uint, 0, len(selected))
		for _, us := range selected {
			ids = append(ids, us.SubjectID)
		}
		subjects, err = s.SubjectRepo.FindByIDs(ids)
	}
	if err != nil {
		return nil, nil, err
	}

	return subjects, priorities, nil
}

// completedKeys 把完成记录折成键集合，供收集阶段排除已完成内容
func (s *SchedulerService) completedKeys(userID uint) (map[progressKey]bool, error) {
	records, err := s.ProgressRepo.FindByUser(userID)
	if err != nil {
		return nil, err
	}

	done := make(map[progressKey]bool, len(records))
	for _, rec := range records {
		if !rec.Completed {
			continue
		}
		done[progressKey{
			SubjectID: rec.SubjectID,
			ModuleID:  rec.ModuleID,
			ItemID:    rec.ItemID,
			Type:      rec.ItemType,
		}] = true
	}
	return done, nil
}

// remainingMinutes 科目剩余学习量 = 总时长 − 已完成时长，含真题块
func remainingMinutes(subject *model.Subject, done map[progressKey]bool) int {
	total := 0
	completed := 0

	for _, module := range subject.Modules {
		for _, item := range module.Items {
			total += item.DurationMinutes
			key := progressKey{SubjectID: subject.ID, ModuleID: module.ID, ItemID: item.ID, Type: item.Type}
			if done[key] {
				completed += item.DurationMinutes
			}
		}
	}

	if subject.PYQCount > 0 {
		est := pyqEstimatedDuration(subject)
		total += est
		if done[progressKey{SubjectID: subject.ID, Type: model.ContentPYQ}] {
			completed += est
		}
	}

	return total - completed
}

func pyqEstimatedDuration(subject *model.Subject) int {
	if subject.PYQDuration > 0 {
		return subject.PYQDuration
	}
	return int(math.Ceil(float64(subject.PYQCount) * model.PYQMinutesPerQuestion))
}

// collectStudyItems 构建有序待排清单：按科目分组，组间按优先级降序
// （同优先级按科目ID升序，保证多次生成结果一致），组内保持目录顺序，
// 真题分段排在科目末尾。
func collectStudyItems(subjects []model.Subject, priorities map[uint]int, done map[progressKey]bool) []studyItem {
	type subjectGroup struct {
		subjectID uint
		priority  int
		items     []studyItem
	}

	groups := make([]subjectGroup, 0, len(subjects))
	emitted := make(map[progressKey]bool)

	for i := range subjects {
		subject := &subjects[i]
		priority, ok := priorities[subject.ID]
		if !ok {
			priority = 5
		}

		var items []studyItem
		for _, module := range subject.Modules {
			for _, item := range module.Items {
				key := progressKey{SubjectID: subject.ID, ModuleID: module.ID, ItemID: item.ID, Type: item.Type}
				if done[key] || emitted[key] {
					continue
				}
				emitted[key] = true
				items = append(items, studyItem{
					SubjectID:   subject.ID,
					SubjectName: subject.Name,
					ModuleID:    module.ID,
					ModuleName:  module.Name,
					ItemID:      item.ID,
					Name:        item.Name,
					Type:        item.Type,
					Duration:    item.DurationMinutes,
					Priority:    priority,
				})
			}
		}

		// 真题块拆成不超过180分钟的分段，避免一个超大块占满一天
		if subject.PYQCount > 0 && !done[progressKey{SubjectID: subject.ID, Type: model.ContentPYQ}] {
			est := pyqEstimatedDuration(subject)
			if est > 0 {
				sessions := util.CeilDiv(est, maxPYQSessionMinutes)
				perSession := util.CeilDiv(est, sessions)
				for part := 1; part <= sessions; part++ {
					key := progressKey{SubjectID: subject.ID, ItemID: uint(part), Type: model.ContentPYQ}
					if emitted[key] {
						continue
					}
					emitted[key] = true
					items = append(items, studyItem{
						SubjectID:   subject.ID,
						SubjectName: subject.Name,
						ModuleName:  "历年真题",
						ItemID:      uint(part),
						Name:        fmt.Sprintf("真题训练 %d/%d", part, sessions),
						Type:        model.ContentPYQ,
						Duration:    perSession,
						Priority:    priority,
					})
				}
			}
		}

		if len(items) > 0 {
			groups = append(groups, subjectGroup{subjectID: subject.ID, priority: priority, items: items})
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].priority != groups[j].priority {
			return groups[i].priority > groups[j].priority
		}
		return groups[i].subjectID < groups[j].subjectID
	})

	var backlog []studyItem
	for _, g := range groups {
		backlog = append(backlog, g.items...)
	}
	return backlog
}

// packDays 贪心装箱：顺序消费待排清单，受单日软上限与跨科目规则约束。
// 只要清单未空，每天至少放入一项，即使该项单独超过上限。
func packDays(userID uint, backlog []studyItem, startDay time.Time, days, dailyTarget int) []DaySchedule {
	var schedule []DaySchedule
	softCap := float64(dailyTarget) * dayOverflowFactor
	switchThreshold := float64(dailyTarget) * subjectSwitchFraction

	idx := 0
	for day := 0; day < days && idx < len(backlog); day++ {
		date := startDay.AddDate(0, 0, day)
		var entries []model.ScheduleEntry
		running := 0
		currentSubject := uint(0)
		seen := make(map[progressKey]bool)

		for idx < len(backlog) && running < dailyTarget {
			item := backlog[idx]

			if len(entries) > 0 {
				// 接近当日目标时不再切换科目，避免科目被切成很多小碎片
				if item.SubjectID != currentSubject &&
					float64(running) > switchThreshold && running > subjectSwitchFloor {
					break
				}
				// 软上限：超出目标10%的项留给下一天
				if float64(running+item.Duration) > softCap {
					break
				}
			}

			// 同一天不重复安排同一内容
			dayKey := progressKey{ItemID: item.ItemID, Type: item.Type}
			if seen[dayKey] {
				idx++
				continue
			}
			seen[dayKey] = true

			entries = append(entries, model.ScheduleEntry{
				UserID:          userID,
				Date:            date,
				SubjectID:       item.SubjectID,
				SubjectName:     item.SubjectName,
				ModuleID:        item.ModuleID,
				ModuleName:      item.ModuleName,
				ItemID:          item.ItemID,
				ItemType:        item.Type,
				Name:            item.Name,
				DurationMinutes: item.Duration,
			})
			running += item.Duration
			currentSubject = item.SubjectID
			idx++
		}

		completedDuration := 0
		for _, e := range entries {
			if e.Completed {
				completedDuration += e.DurationMinutes
			}
		}

		schedule = append(schedule, DaySchedule{
			Date:                   date,
			PlannedSessions:        entries,
			TotalPlannedDuration:   running,
			TotalCompletedDuration: completedDuration,
		})
	}

	return schedule
}

// persistSchedule 先清掉 startDay 起已有条目，再按 (ItemID, Type, Date)
// 去重后分批写入。单个批次失败记日志后跳过，不回滚已写批次，
// 也不中断后续批次（至少一次、非原子语义）。
func (s *SchedulerService) persistSchedule(userID uint, startDay time.Time, schedule []DaySchedule) error {
	if err := s.ScheduleRepo.DeleteFrom(userID, startDay); err != nil {
		return err
	}

	type entryKey struct {
		ItemID uint
		Type   model.ContentType
		Date   time.Time
	}

	var entries []model.ScheduleEntry
	written := make(map[entryKey]bool)
	for _, day := range schedule {
		for _, e := range day.PlannedSessions {
			key := entryKey{ItemID: e.ItemID, Type: e.ItemType, Date: e.Date}
			if written[key] {
				continue
			}
			written[key] = true
			entries = append(entries, e)
		}
	}

	for offset := 0; offset < len(entries); offset += scheduleWriteBatchSize {
		end := offset + scheduleWriteBatchSize
		if end > len(entries) {
			end = len(entries)
		}
		if err := s.ScheduleRepo.CreateAll(entries[offset:end]); err != nil {
			logger.Log.Error("schedule batch write failed, skipping batch",
				zap.Uint("userId", userID),
				zap.Int("offset", offset),
				zap.Int("size", end-offset),
				zap.Error(err))
		}
	}

	return nil
}

// CompleteScheduleEntry 标记一条排期完成，只能操作自己的条目
func (s *SchedulerService) CompleteScheduleEntry(userID, entryID uint) error {
	entry, err := s.ScheduleRepo.FindByID(entryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrEntryNotFound
		}
		return err
	}
	if entry.UserID != userID {
		return util.ErrPermissionDenied
	}
	return s.ScheduleRepo.MarkCompleted(entryID, time.Now())
}

// GetSchedule 查询 [from, from+days) 的已存排期，按天聚合
func (s *SchedulerService) GetSchedule(userID uint, from time.Time, days int) ([]DaySchedule, error) {
	if days <= 0 {
		days = s.DefaultDays
	}
	start := util.StartOfDay(from)
	end := start.AddDate(0, 0, days)

	entries, err := s.ScheduleRepo.FindByUserAndRange(userID, start, end)
	if err != nil {
		return nil, err
	}

	byDate := make(map[time.Time]*DaySchedule)
	var order []time.Time
	for _, e := range entries {
		day := util.StartOfDay(e.Date)
		ds, ok := byDate[day]
		if !ok {
			ds = &DaySchedule{Date: day}
			byDate[day] = ds
			order = append(order, day)
		}
		ds.PlannedSessions = append(ds.PlannedSessions, e)
		ds.TotalPlannedDuration += e.DurationMinutes
		if e.Completed {
			ds.TotalCompletedDuration += e.DurationMinutes
		}
	}

	result := make([]DaySchedule, 0, len(order))
	for _, day := range order {
		result = append(result, *byDate[day])
	}
	return result, nil
}
