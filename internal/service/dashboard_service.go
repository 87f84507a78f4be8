package service

import (
	"go-production-ws/internal/model"
	"go-production-ws/internal/repository"
)

// AppData is the one-shot bootstrap payload the boards and read-only adapters
// (kanban, reporting, AI assistant) consume. Strictly read-only: nothing in
// here may be written back except through the workstation operations.
type AppData struct {
	Jobs             []model.Job              `json:"jobs"`
	Users            []model.UserResponse     `json:"users"`
	ProductTypes     []model.ProductType      `json:"product_types"`
	ProductionStages []model.ProductionStage  `json:"production_stages"`
	JobAssignments   []model.JobAssignment    `json:"job_assignments"`
	JobStageStatuses []model.JobStageStatus   `json:"job_stage_statuses"`
	Products         []model.Product          `json:"products"`
	StageLinks       []model.ProductStageLink `json:"product_stage_links"`
	StageEvents      []model.StageEvent       `json:"stage_events"`
}

type DashboardService interface {
	GetFloorStats() (*repository.FloorStats, error)
	GetAppData() (*AppData, error)
}

type dashboardService struct {
	reportRepo  repository.ReportRepository
	jobRepo     repository.JobRepository
	productRepo repository.ProductRepository
	typeRepo    repository.ProductTypeRepository
	eventRepo   repository.StageEventRepository
	userRepo    repository.UserRepository
}

func NewDashboardService(
	reportRepo repository.ReportRepository,
	jobRepo repository.JobRepository,
	productRepo repository.ProductRepository,
	typeRepo repository.ProductTypeRepository,
	eventRepo repository.StageEventRepository,
	userRepo repository.UserRepository,
) DashboardService {
	return &dashboardService{
		reportRepo:  reportRepo,
		jobRepo:     jobRepo,
		productRepo: productRepo,
		typeRepo:    typeRepo,
		eventRepo:   eventRepo,
		userRepo:    userRepo,
	}
}

func (s *dashboardService) GetFloorStats() (*repository.FloorStats, error) {
	return s.reportRepo.FloorStats()
}

func (s *dashboardService) GetAppData() (*AppData, error) {
	data := &AppData{}

	jobs, err := s.jobRepo.FindAll()
	if err != nil {
		return nil, classify(err)
	}
	data.Jobs = jobs

	users, err := s.userRepo.FindAll()
	if err != nil {
		return nil, classify(err)
	}
	for _, u := range users {
		data.Users = append(data.Users, u.ToResponse())
	}

	types, err := s.typeRepo.FindAll()
	if err != nil {
		return nil, classify(err)
	}
	data.ProductTypes = types
	for _, pt := range types {
		data.ProductionStages = append(data.ProductionStages, pt.Stages...)
	}

	assignments, err := s.jobRepo.AllAssignments()
	if err != nil {
		return nil, classify(err)
	}
	data.JobAssignments = assignments

	for _, job := range jobs {
		statuses, err := s.jobRepo.StageStatusesForJob(job.ID)
		if err != nil {
			return nil, classify(err)
		}
		data.JobStageStatuses = append(data.JobStageStatuses, statuses...)
	}

	products, err := s.productRepo.FindAll()
	if err != nil {
		return nil, classify(err)
	}
	data.Products = products

	links, err := s.productRepo.AllLinks()
	if err != nil {
		return nil, classify(err)
	}
	data.StageLinks = links

	events, err := s.eventRepo.FindAll()
	if err != nil {
		return nil, classify(err)
	}
	data.StageEvents = events

	return data, nil
}
