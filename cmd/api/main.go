package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"go-production-ws/internal/handler"
	"go-production-ws/internal/middleware"
	"go-production-ws/internal/model"
	"go-production-ws/internal/repository"
	"go-production-ws/internal/service"
	"go-production-ws/internal/ws"
	"go-production-ws/pkg/database"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// 2. Setup Database
	db := database.ConnectDB()
	// Auto Migrate (use a dedicated migration tool in production)
	db.AutoMigrate(
		&model.User{}, &model.Privilege{}, &model.Role{},
		&model.ProductType{}, &model.ProductionStage{},
		&model.Job{}, &model.JobAssignment{}, &model.JobStageStatus{},
		&model.Product{}, &model.ProductStageLink{},
		&model.StageEvent{},
	)

	// 3. Seed default privileges, roles, and admin user
	seedPrivilegesRolesAndAdmin(db)

	// 4. Setup WebSocket Hub
	wsHub := ws.NewHub()
	go wsHub.Run()

	// 5. Dependency Injection (Wiring Layers)
	userRepo := repository.NewUserRepo(db)
	privilegeRepo := repository.NewPrivilegeRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	typeRepo := repository.NewProductTypeRepo(db)
	jobRepo := repository.NewJobRepo(db)
	productRepo := repository.NewProductRepo(db)
	eventRepo := repository.NewStageEventRepo(db)
	reportRepo := repository.NewReportRepo(db)

	authService := service.NewAuthService(userRepo, wsHub)
	userService := service.NewUserService(userRepo, privilegeRepo, roleRepo)
	typeService := service.NewProductTypeService(typeRepo)
	jobService := service.NewJobService(jobRepo, productRepo, typeRepo, eventRepo, db, wsHub)
	workstationService := service.NewWorkstationService(productRepo, jobRepo, typeRepo, eventRepo, db, wsHub)
	reportService := service.NewReportService(reportRepo)
	dashService := service.NewDashboardService(reportRepo, jobRepo, productRepo, typeRepo, eventRepo, userRepo)

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	roleHandler := handler.NewRoleHandler(roleRepo)
	typeHandler := handler.NewProductTypeHandler(typeService)
	jobHandler := handler.NewJobHandler(jobService)
	productHandler := handler.NewProductHandler(productRepo, eventRepo, workstationService)
	workstationHandler := handler.NewWorkstationHandler(workstationService)
	reportHandler := handler.NewReportHandler(reportService)
	dashHandler := handler.NewDashboardHandler(dashService)

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "Production Tracker v1.0",
	})

	// Middleware
	app.Use(logger.New())  // Logging request
	app.Use(recover.New()) // Panic recovery
	app.Use(cors.New())    // CORS

	// 7. Routes
	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/reset-password", authHandler.ResetPassword)
	auth.Post("/validate-token", authHandler.ValidateToken)
	auth.Post("/heartbeat", middleware.RequireAuth(userRepo), authHandler.Heartbeat)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireAuth(userRepo))

	// Dashboard + bootstrap
	protected.Get("/dashboard/stats", middleware.RequirePrivilege("dashboard:view"), dashHandler.GetFloorStats)
	protected.Get("/app-data", dashHandler.GetAppData)

	// Product type catalog
	protected.Get("/product-types", middleware.RequirePrivilege("catalog:view"), typeHandler.GetProductTypes)
	protected.Get("/product-types/:id", middleware.RequirePrivilege("catalog:view"), typeHandler.GetProductType)
	protected.Post("/product-types", middleware.RequirePrivilege("catalog:manage"), typeHandler.CreateProductType)
	protected.Put("/production-stages/:stageId", middleware.RequirePrivilege("catalog:manage"), typeHandler.UpdateStage)
	protected.Delete("/production-stages/:stageId", middleware.RequirePrivilege("catalog:manage"), typeHandler.DeleteStage)

	// Jobs
	protected.Get("/jobs", middleware.RequirePrivilege("job:view"), jobHandler.GetJobs)
	protected.Get("/jobs/:id", middleware.RequirePrivilege("job:view"), jobHandler.GetJob)
	protected.Post("/jobs", middleware.RequirePrivilege("job:create"), jobHandler.CreateJob)
	protected.Post("/jobs/:id/products", middleware.RequirePrivilege("job:create"), jobHandler.AddProduct)

	// Job assignments
	protected.Get("/job-assignments/job/:jobId", middleware.RequirePrivilege("job:view"), jobHandler.GetAssignments)
	protected.Post("/job-assignments", middleware.RequirePrivilege("job:assign"), jobHandler.CreateAssignment)
	protected.Delete("/job-assignments", middleware.RequirePrivilege("job:assign"), jobHandler.DeleteAssignment)

	// Products (read side). Technicians get these too: the station UI shows
	// serials and travelers.
	productRead := middleware.RequireAnyPrivilege("job:view", "workstation:operate")
	protected.Get("/products", productRead, productHandler.GetProducts)
	protected.Get("/products/:id/location", productRead, productHandler.GetLocation)
	protected.Get("/products/:id/history", productRead, productHandler.GetHistory)

	// Workstation (the transition engine)
	workstation := protected.Group("/workstation")
	workstation.Post("/start", middleware.RequirePrivilege("workstation:operate"), workstationHandler.Start)
	workstation.Post("/pass", middleware.RequirePrivilege("workstation:operate"), workstationHandler.Pass)
	workstation.Post("/fail", middleware.RequirePrivilege("workstation:operate"), workstationHandler.Fail)
	workstation.Post("/rework", middleware.RequirePrivilege("workstation:operate"), workstationHandler.Rework)
	workstation.Post("/move", middleware.RequirePrivilege("workstation:move"), workstationHandler.Move)
	workstation.Post("/scrap", middleware.RequirePrivilege("workstation:scrap"), workstationHandler.Scrap)
	workstation.Post("/scan", middleware.RequirePrivilege("workstation:operate"), workstationHandler.Scan)
	workstation.Get("/data", middleware.RequirePrivilege("workstation:operate"), workstationHandler.StationData)

	// Reports (read-only consumers of the event log)
	reports := protected.Group("/reports", middleware.RequirePrivilege("report:view"))
	reports.Get("/job-completion", reportHandler.JobCompletion)
	reports.Get("/failure-analysis", reportHandler.FailureAnalysis)
	reports.Get("/technician-performance", reportHandler.TechnicianPerformance)

	// User Management
	protected.Get("/users", userHandler.GetUsers)
	protected.Get("/users/:id", userHandler.GetUser)
	protected.Post("/users", middleware.RequirePrivilege("user:create"), userHandler.CreateUser)
	protected.Put("/users/:id", middleware.RequirePrivilege("user:update"), userHandler.UpdateUser)
	protected.Delete("/users/:id", middleware.RequirePrivilege("user:delete"), userHandler.DeleteUser)
	protected.Put("/users/:id/privileges", middleware.RequirePrivilege("user:update_privilege"), userHandler.UpdateUserPrivileges)

	// Roles and privileges
	protected.Get("/roles", roleHandler.GetRoles)
	protected.Get("/privileges", func(c *fiber.Ctx) error {
		privileges, err := privilegeRepo.FindAll()
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch privileges"})
		}
		return c.JSON(privileges)
	})

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		wsHub.Register <- c
		defer func() { wsHub.Unregister <- c }()

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 8. Graceful Shutdown
	go func() {
		port := os.Getenv("PORT")
		if port == "" {
			port = "3000"
		}
		if err := app.Listen(":" + port); err != nil {
			log.Panic(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}

// seedPrivilegesRolesAndAdmin creates default privileges, roles, and admin user if they don't exist
func seedPrivilegesRolesAndAdmin(db *gorm.DB) {
	privilegeRepo := repository.NewPrivilegeRepo(db)
	userRepo := repository.NewUserRepo(db)
	roleRepo := repository.NewRoleRepo(db)

	// 1. Seed privileges first
	if err := privilegeRepo.SeedDefaults(); err != nil {
		log.Printf("Warning: Failed to seed privileges: %v", err)
	}

	// 2. Seed roles
	if err := roleRepo.SeedDefaults(); err != nil {
		log.Printf("Warning: Failed to seed roles: %v", err)
	}

	// 3. Assign privileges to roles
	allPrivileges, _ := privilegeRepo.FindAll()

	// ADMIN gets ALL privileges
	adminRole, err := roleRepo.FindByCode(model.RoleAdmin)
	if err == nil && len(adminRole.Privileges) == 0 {
		db.Model(&adminRole).Association("Privileges").Replace(allPrivileges)
		log.Println("ADMIN role assigned all privileges")
	}

	// MANAGER gets everything except user administration
	managerRole, err := roleRepo.FindByCode(model.RoleManager)
	if err == nil && len(managerRole.Privileges) == 0 {
		db.Model(&managerRole).Association("Privileges").Replace(model.ManagerPrivileges(allPrivileges))
		log.Println("MANAGER role assigned floor privileges")
	}

	// TECHNICIAN gets the operating set only
	techRole, err := roleRepo.FindByCode(model.RoleTechnician)
	if err == nil && len(techRole.Privileges) == 0 {
		db.Model(&techRole).Association("Privileges").Replace(model.TechnicianPrivileges(allPrivileges))
		log.Println("TECHNICIAN role assigned operating privileges")
	}

	// 4. Create default admin user with ADMIN role
	_, err = userRepo.FindByEmail("admin@example.com")
	if err != nil {
		adminRole, _ := roleRepo.FindByCode(model.RoleAdmin)

		admin := &model.User{
			Email:       "admin@example.com",
			FullName:    "Administrator",
			PhoneNumber: "",
			RoleID:      &adminRole.ID,
			IsActive:    true,
			Privileges:  adminRole.Privileges,
		}
		admin.CreatedBy = "system"
		admin.UpdatedBy = "system"

		if err := admin.SetPassword("admin123"); err != nil {
			log.Printf("Warning: Failed to hash admin password: %v", err)
			return
		}

		if err := userRepo.Create(admin); err != nil {
			log.Printf("Warning: Failed to create admin user: %v", err)
		} else {
			log.Println("Admin user created: admin@example.com / admin123 (ADMIN)")
		}
	}
}
